package alerta

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilaRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	fila := NewFilaRedis(client, "test:alertas")
	ctx := context.Background()
	em := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	primeiro := Novo(1, 3, "COSIS", "primeiro", em)
	segundo := Novo(1, 2, "SGP", "segundo", em)
	require.NoError(t, fila.Enfileirar(ctx, primeiro))
	require.NoError(t, fila.Enfileirar(ctx, segundo))

	itens, err := mr.List("test:alertas")
	require.NoError(t, err)
	assert.Len(t, itens, 2)

	pendentes, err := fila.Pendentes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pendentes, 2)
	assert.Equal(t, primeiro.ID, pendentes[0].ID)
	assert.Equal(t, "segundo", pendentes[1].Descricao)

	pendentes, err = fila.Pendentes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pendentes, 1)
	assert.Equal(t, "primeiro", pendentes[0].Descricao)
}

func TestFilaRedisIndisponivel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	err = NewFilaRedis(client, "test:alertas").Enfileirar(context.Background(), Novo(1, 1, "X", "x", time.Now()))
	assert.Error(t, err)
}

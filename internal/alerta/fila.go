package alerta

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Sink recebe pedidos de criação de alerta.
type Sink interface {
	Enfileirar(ctx context.Context, a Alerta) error
}

// FilaRedis publica alertas em uma lista do redis (LPUSH); o consumidor
// externo retira pela outra ponta.
type FilaRedis struct {
	client *redis.Client
	chave  string
}

// NewFilaRedis cria a fila na chave informada.
func NewFilaRedis(client *redis.Client, chave string) *FilaRedis {
	return &FilaRedis{client: client, chave: chave}
}

// Enfileirar grava o alerta serializado em JSON.
func (f *FilaRedis) Enfileirar(ctx context.Context, a Alerta) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := f.client.LPush(ctx, f.chave, payload).Err(); err != nil {
		return fmt.Errorf("enfileirar alerta: %w", err)
	}
	return nil
}

// Pendentes devolve até limite alertas ainda não consumidos, do mais antigo
// para o mais recente.
func (f *FilaRedis) Pendentes(ctx context.Context, limite int64) ([]Alerta, error) {
	if limite <= 0 {
		limite = 50
	}
	itens, err := f.client.LRange(ctx, f.chave, -limite, -1).Result()
	if err != nil {
		return nil, err
	}

	alertas := make([]Alerta, 0, len(itens))
	for i := len(itens) - 1; i >= 0; i-- {
		var a Alerta
		if err := json.Unmarshal([]byte(itens[i]), &a); err != nil {
			return nil, fmt.Errorf("alerta inválido na fila: %w", err)
		}
		alertas = append(alertas, a)
	}
	return alertas, nil
}

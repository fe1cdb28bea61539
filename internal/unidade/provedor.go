package unidade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const chaveCacheHierarquia = "sgc:unidades:hierarquia"

// Lister carrega a lista plana de unidades.
type Lister interface {
	ListarTodas(ctx context.Context) ([]Unidade, error)
}

// Provedor entrega a hierarquia atual, usando o redis como cache de curta
// duração da lista de unidades.
type Provedor struct {
	repo   Lister
	cache  *redis.Client
	ttl    time.Duration
	opts   []Opcao
	logger zerolog.Logger
}

// NewProvedor cria o provedor. cache nil ou ttl zero desativam o cache.
func NewProvedor(repo Lister, cache *redis.Client, ttl time.Duration, logger zerolog.Logger, opts ...Opcao) *Provedor {
	return &Provedor{repo: repo, cache: cache, ttl: ttl, opts: opts, logger: logger}
}

// Hierarquia monta a árvore a partir do cache ou do banco.
func (p *Provedor) Hierarquia(ctx context.Context) (*Hierarquia, error) {
	if p.cacheAtivo() {
		if data, err := p.cache.Get(ctx, chaveCacheHierarquia).Bytes(); err == nil {
			var unidades []Unidade
			if json.Unmarshal(data, &unidades) == nil {
				if h, err := NovaHierarquia(unidades, p.opts...); err == nil {
					return h, nil
				}
			}
			p.logger.Warn().Msg("unidades: cache inválido, recarregando do banco")
		}
	}

	unidades, err := p.repo.ListarTodas(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar unidades: %w", err)
	}

	h, err := NovaHierarquia(unidades, p.opts...)
	if err != nil {
		return nil, err
	}

	if p.cacheAtivo() {
		if payload, err := json.Marshal(unidades); err == nil {
			if err := p.cache.Set(ctx, chaveCacheHierarquia, payload, p.ttl).Err(); err != nil {
				p.logger.Warn().Err(err).Msg("unidades: falha ao gravar cache")
			}
		}
	}

	return h, nil
}

// Invalidar descarta o retrato em cache.
func (p *Provedor) Invalidar(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Del(ctx, chaveCacheHierarquia).Err()
}

func (p *Provedor) cacheAtivo() bool {
	return p.cache != nil && p.ttl > 0
}

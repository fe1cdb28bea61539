package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lgalvao/sgc-sub008/internal/alerta"
	"github.com/lgalvao/sgc-sub008/internal/auth"
	"github.com/lgalvao/sgc-sub008/internal/config"
	"github.com/lgalvao/sgc-sub008/internal/db"
	internalhttp "github.com/lgalvao/sgc-sub008/internal/http"
	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/subprocesso"
	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

// App reúne as dependências compartilhadas pela API e pela CLI.
type App struct {
	Cfg      *config.Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	JWT      *auth.JWTManager
	Unidades *unidade.Provedor
	Perfis   *perfil.Resolver
	Alertas  *alerta.FilaRedis
	Workflow *subprocesso.Service
	Registry *prometheus.Registry
}

// New conecta Postgres e Redis e monta os serviços.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provedor := unidade.NewProvedor(
		unidade.NewRepository(pool),
		redisClient,
		cfg.Workflow.HierarquiaCacheTTL,
		log.With().Str("component", "unidade").Logger(),
		unidade.ComRaiz(cfg.Workflow.UnidadeRaizCodigo, cfg.Workflow.UnidadeRaizAlias),
	)
	resolver := perfil.NewResolver(perfil.NewRepository(pool))
	fila := alerta.NewFilaRedis(redisClient, cfg.Workflow.AlertaFila)

	workflow := subprocesso.NewService(
		subprocesso.NewRepository(pool),
		provedor,
		resolver,
		fila,
		subprocesso.ComMetrics(subprocesso.NewMetrics(reg)),
	)

	return &App{
		Cfg:      cfg,
		Pool:     pool,
		Redis:    redisClient,
		JWT:      auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL),
		Unidades: provedor,
		Perfis:   resolver,
		Alertas:  fila,
		Workflow: workflow,
		Registry: reg,
	}, nil
}

// Router devolve o handler HTTP da API.
func (a *App) Router() http.Handler {
	return internalhttp.NewRouter(a.Cfg, internalhttp.Deps{
		JWT:          a.JWT,
		Workflow:     a.Workflow,
		Unidades:     a.Unidades,
		Responsaveis: a.Perfis,
		Gatherer:     a.Registry,
		Prontidao: map[string]internalhttp.Checagem{
			"db":    a.Pool.Ping,
			"redis": a.pingRedis,
		},
	})
}

func (a *App) pingRedis(ctx context.Context) error {
	return a.Redis.Ping(ctx).Err()
}

// Close libera conexões.
func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		log.Warn().Err(err).Msg("falha ao fechar redis")
	}
	a.Pool.Close()
}

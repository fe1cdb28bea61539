package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lgalvao/sgc-sub008/internal/auth"
	"github.com/lgalvao/sgc-sub008/internal/config"
	httpmiddleware "github.com/lgalvao/sgc-sub008/internal/http/middleware"
	"github.com/lgalvao/sgc-sub008/internal/perfil"
	"github.com/lgalvao/sgc-sub008/internal/subprocesso"
)

// Workflow é o conjunto de operações do motor de subprocessos exposto pela
// API.
type Workflow interface {
	Detalhar(ctx context.Context, codigo int64) (subprocesso.Detalhe, error)
	CalcularPermissoes(ctx context.Context, codigo int64, ator subprocesso.Ator) (subprocesso.Permissoes, error)
	ListarHistorico(ctx context.Context, codigo int64) (subprocesso.Historico, error)
	AplicarAcao(ctx context.Context, codigo int64, acao subprocesso.Acao, ator subprocesso.Ator, dados subprocesso.Dados) (subprocesso.Resultado, error)
	ProcessarEmBloco(ctx context.Context, processo int64, unidades []int64, acao subprocesso.Acao, ator subprocesso.Ator, dados subprocesso.Dados) ([]subprocesso.ResultadoUnidade, error)
	IniciarProcesso(ctx context.Context, processo int64, unidades []int64, ator subprocesso.Ator, dataLimite time.Time) ([]subprocesso.ResultadoUnidade, error)
}

// Responsaveis identifica titular e substituto de uma unidade.
type Responsaveis interface {
	Responsavel(ctx context.Context, unidade int64, tituloTitular string, em time.Time) (perfil.Responsavel, error)
}

// Checagem testa uma dependência para o /ready.
type Checagem func(ctx context.Context) error

// Deps agrupa as dependências do roteador.
type Deps struct {
	JWT          *auth.JWTManager
	Workflow     Workflow
	Unidades     httpmiddleware.Hierarquias
	Responsaveis Responsaveis
	Gatherer     prometheus.Gatherer
	// Prontidao lista as dependências verificadas em /ready, por nome.
	Prontidao map[string]Checagem
	Agora     func() time.Time
}

type Handler struct {
	workflow      Workflow
	unidades      httpmiddleware.Hierarquias
	responsaveis  Responsaveis
	prontidao     map[string]Checagem
	agora         func() time.Time
	logger        zerolog.Logger
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	agora := deps.Agora
	if agora == nil {
		agora = time.Now
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &Handler{
		workflow:      deps.Workflow,
		unidades:      deps.Unidades,
		responsaveis:  deps.Responsaveis,
		prontidao:     deps.Prontidao,
		agora:         agora,
		logger:        log.With().Str("component", "http").Logger(),
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		public.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(deps.JWT))
		private.Use(httpmiddleware.Scope(deps.Unidades))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		h.RegisterRoutes(private)
	})

	return r
}

// RegisterRoutes monta as rotas autenticadas do workflow.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/subprocessos/{codigo}", func(r chi.Router) {
		r.Get("/", h.DetalharSubprocesso)
		r.Get("/permissoes", h.Permissoes)
		r.Get("/historico", h.Historico)
		r.Post("/acoes/{acao}", h.AplicarAcao)
	})

	r.Route("/processos/{codigo}", func(r chi.Router) {
		r.Post("/bloco/{acao}", h.ProcessarEmBloco)
		r.With(httpmiddleware.RequirePerfil(string(perfil.Admin))).Post("/iniciar", h.IniciarProcesso)
	})

	r.Get("/unidades/{codigo}/responsavel", h.Responsavel)
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	falhas := map[string]any{}
	for nome, checar := range h.prontidao {
		if err := checar(ctx); err != nil {
			falhas[nome] = err.Error()
		}
	}

	if len(falhas) > 0 {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", falhas)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

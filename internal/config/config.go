package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTAccessTTL    time.Duration
	JWTSecret       string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Workflow        WorkflowConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// WorkflowConfig agrupa parâmetros do fluxo de subprocessos.
type WorkflowConfig struct {
	// UnidadeRaizCodigo identifica a unidade raiz técnica da organização.
	UnidadeRaizCodigo int64
	// UnidadeRaizAlias é exibido no lugar da sigla da raiz.
	UnidadeRaizAlias   string
	AlertaFila         string
	HierarquiaCacheTTL time.Duration
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 8*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	workflow, err := loadWorkflow()
	if err != nil {
		return nil, err
	}
	cfg.Workflow = workflow

	return cfg, nil
}

func loadWorkflow() (WorkflowConfig, error) {
	wf := WorkflowConfig{}

	raiz, err := strconv.ParseInt(getEnv("UNIDADE_RAIZ_CODIGO", "1"), 10, 64)
	if err != nil || raiz <= 0 {
		return wf, errors.New("UNIDADE_RAIZ_CODIGO inválido")
	}
	wf.UnidadeRaizCodigo = raiz

	wf.UnidadeRaizAlias = strings.TrimSpace(getEnv("UNIDADE_RAIZ_ALIAS", "ADMIN"))
	if wf.UnidadeRaizAlias == "" {
		wf.UnidadeRaizAlias = "ADMIN"
	}

	wf.AlertaFila = strings.TrimSpace(getEnv("ALERTA_FILA", "sgc:alertas"))
	if wf.AlertaFila == "" {
		wf.AlertaFila = "sgc:alertas"
	}

	ttl, err := parseDurationEnv("HIERARQUIA_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return wf, err
	}
	if ttl < 0 {
		return wf, errors.New("HIERARQUIA_CACHE_TTL inválido")
	}
	wf.HierarquiaCacheTTL = ttl

	return wf, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

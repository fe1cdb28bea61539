package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lgalvao/sgc-sub008/internal/auth"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyUnidade contextKey = "unidade"
	ContextKeyPerfil  contextKey = "perfil"
)

// Auth valida JWT de acesso e injeta usuário, unidade e perfil no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			ctx := WithUsuario(r.Context(), claims.Subject, claims.Unidade, claims.Perfil)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUsuario injeta o usuário autenticado no contexto.
func WithUsuario(ctx context.Context, titulo string, unidade int64, perfil string) context.Context {
	if reg := registroDe(ctx); reg != nil {
		reg.usuario = titulo
		reg.unidade = unidade
	}
	ctx = context.WithValue(ctx, ContextKeySubject, titulo)
	ctx = context.WithValue(ctx, ContextKeyUnidade, unidade)
	return context.WithValue(ctx, ContextKeyPerfil, strings.ToUpper(perfil))
}

// GetSubject recupera o título do usuário do contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetUnidade recupera a unidade de atuação do contexto.
func GetUnidade(ctx context.Context) int64 {
	val, _ := ctx.Value(ContextKeyUnidade).(int64)
	return val
}

// GetPerfil recupera o perfil escolhido no login.
func GetPerfil(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyPerfil).(string)
	return val
}

// RequirePerfil garante que o perfil do token seja um dos informados. A
// decisão final sobre cada ação continua com o motor de workflow, que
// consulta as atribuições vigentes.
func RequirePerfil(perfis ...string) func(http.Handler) http.Handler {
	normalized := make([]string, 0, len(perfis))
	for _, p := range perfis {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atual := GetPerfil(r.Context())
			for _, p := range normalized {
				if atual == p {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "PROIBIDO", "perfil sem acesso a esta operação")
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

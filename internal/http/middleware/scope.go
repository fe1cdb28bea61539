package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lgalvao/sgc-sub008/internal/unidade"
)

// Hierarquias entrega o retrato atual da árvore de unidades.
type Hierarquias interface {
	Hierarquia(ctx context.Context) (*unidade.Hierarquia, error)
}

// Scope valida a unidade de atuação do usuário autenticado. Quando o cliente
// envia X-Unidade, ela precisa coincidir com a unidade do token.
func Scope(unidades Hierarquias) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atual := GetUnidade(r.Context())
			if atual <= 0 {
				writeError(w, http.StatusUnauthorized, "AUTH", "unidade de atuação ausente")
				return
			}

			if header := strings.TrimSpace(r.Header.Get("X-Unidade")); header != "" {
				informada, err := strconv.ParseInt(header, 10, 64)
				if err != nil {
					writeError(w, http.StatusBadRequest, "VALIDACAO", "unidade inválida")
					return
				}
				if informada != atual {
					writeError(w, http.StatusForbidden, "PROIBIDO", "unidade diferente da unidade de atuação")
					return
				}
			}

			h, err := unidades.Hierarquia(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "INTERNAL", "falha ao carregar unidades")
				return
			}
			if _, err := h.Buscar(atual); err != nil {
				if errors.Is(err, unidade.ErrNotFound) {
					writeError(w, http.StatusForbidden, "PROIBIDO", "unidade de atuação desconhecida")
					return
				}
				writeError(w, http.StatusInternalServerError, "INTERNAL", "falha ao carregar unidades")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type chaveRegistro struct{}

// registro é preenchido pelo Auth para que o log da requisição, escrito
// depois do handler, identifique quem fez a chamada.
type registro struct {
	usuario string
	unidade int64
}

func registroDe(ctx context.Context) *registro {
	reg, _ := ctx.Value(chaveRegistro{}).(*registro)
	return reg
}

// Logging escreve logs estruturados por requisição.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		reg := &registro{}
		r = r.WithContext(context.WithValue(r.Context(), chaveRegistro{}, reg))

		next.ServeHTTP(ww, r)

		dur := time.Since(start)
		event := log.Info().Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", ww.Status()).Dur("duration", dur)

		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			event = event.Str("request_id", reqID)
		}

		event = event.Str("ip", realIPFromRequest(r))

		if ua := r.Header.Get("User-Agent"); ua != "" {
			event = event.Str("user_agent", ua)
		}

		if reg.usuario != "" {
			event = event.Str("usuario", reg.usuario).Int64("unidade", reg.unidade)
		}

		event.Msg("http_request")
	})
}

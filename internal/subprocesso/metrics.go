package subprocesso

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrega os contadores do motor de transições.
type Metrics struct {
	transicoes *prometheus.CounterVec
	duracao    *prometheus.HistogramVec
}

// NewMetrics registra as métricas no registerer informado.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		transicoes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sgc",
			Name:      "transicoes_total",
			Help:      "Total de ações aplicadas sobre subprocessos, por resultado.",
		}, []string{"acao", "resultado"}),
		duracao: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sgc",
			Name:      "transicao_duracao_segundos",
			Help:      "Duração da aplicação de ações sobre subprocessos.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"acao"}),
	}
}

func (m *Metrics) observar(acao Acao, err error, inicio time.Time) {
	if m == nil {
		return
	}
	resultado := "sucesso"
	if err != nil {
		resultado = strings.ToLower(string(TipoDe(err)))
	}
	m.transicoes.WithLabelValues(string(acao), resultado).Inc()
	m.duracao.WithLabelValues(string(acao)).Observe(time.Since(inicio).Seconds())
}

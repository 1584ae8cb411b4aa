package infra

import (
	"context"
	"strconv"

	"guestbook-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusStats expõe as decisões como contador.
//
// A chave do cliente fica de fora dos labels (cardinalidade).
type PrometheusStats struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStats(reg prometheus.Registerer) *PrometheusStats {
	return &PrometheusStats{
		decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "guestbook_admission_decisions_total",
			Help: "Admission decisions by action, deciding stage and outcome",
		}, []string{"action", "stage", "allowed"}),
	}
}

func (p *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	p.decisions.WithLabelValues(ev.Action, string(ev.Stage), strconv.FormatBool(ev.Allowed)).Inc()
	return nil
}

// Counter devolve o contador de uma combinação de labels.
func (p *PrometheusStats) Counter(action string, stage domain.Stage, allowed bool) prometheus.Counter {
	return p.decisions.WithLabelValues(action, string(stage), strconv.FormatBool(allowed))
}

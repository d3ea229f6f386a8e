package metrics

import "github.com/prometheus/client_golang/prometheus"

// Account outcomes recorded by the sync and report pipelines.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeFailed      = "failed"
	OutcomeSkipped     = "skipped"
	OutcomeUndelivered = "undelivered"
)

// PipelineMetrics counts per-account outcomes and ingested rows.
type PipelineMetrics struct {
	accounts *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	accounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_accounts_total",
		Help:      "Accounts processed by a pipeline, by outcome.",
	}, []string{"pipeline", "outcome"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_rows_total",
		Help:      "Square records written during sync, by kind.",
	}, []string{"kind"})
	reg.MustRegister(accounts, rows)
	return &PipelineMetrics{accounts: accounts, rows: rows}
}

func (p *PipelineMetrics) IncAccount(pipeline, outcome string) {
	if p == nil || p.accounts == nil {
		return
	}
	p.accounts.WithLabelValues(normalizeLabel(pipeline), normalizeLabel(outcome)).Inc()
}

func (p *PipelineMetrics) AddRows(kind string, n int) {
	if p == nil || p.rows == nil || n <= 0 {
		return
	}
	p.rows.WithLabelValues(normalizeLabel(kind)).Add(float64(n))
}

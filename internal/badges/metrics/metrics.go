package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the badge engine. All methods are
// nil-safe so the service can run unobserved in tests.
type Metrics struct {
	AwardsCreated      *prometheus.CounterVec
	AwardsCascaded     prometheus.Counter
	AwardsRejected     prometheus.Counter
	ProgressUpdates    prometheus.Counter
	NominationsCreated prometheus.Counter
	ClaimsAttempted    *prometheus.CounterVec
	AwardDuration      prometheus.Histogram
}

// New registers all badge engine metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on the given registerer; tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AwardsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laurel_awards_created_total",
			Help: "Total awards created, by origin",
		}, []string{"origin"}),
		AwardsCascaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "laurel_awards_cascaded_total",
			Help: "Total awards issued by the prerequisite cascade",
		}),
		AwardsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "laurel_awards_rejected_total",
			Help: "Total award attempts rejected by the uniqueness rule",
		}),
		ProgressUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "laurel_progress_updates_total",
			Help: "Total progress percent or counter updates",
		}),
		NominationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "laurel_nominations_created_total",
			Help: "Total nominations created",
		}),
		ClaimsAttempted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laurel_claims_attempted_total",
			Help: "Total claim code attempts, by outcome",
		}, []string{"outcome"}),
		AwardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "laurel_award_duration_seconds",
			Help:    "Duration of award creation including the cascade",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// Origins for the awards created counter.
const (
	OriginDirect     = "direct"
	OriginCascade    = "cascade"
	OriginProgress   = "progress"
	OriginNomination = "nomination"
	OriginClaim      = "claim"
)

// Outcomes for the claims attempted counter.
const (
	OutcomeClaimed   = "claimed"
	OutcomeNotFound  = "not_found"
	OutcomeThrottled = "throttled"
	OutcomeRejected  = "rejected"
)

func (m *Metrics) IncrementAwardCreated(origin string) {
	if m == nil {
		return
	}
	m.AwardsCreated.WithLabelValues(origin).Inc()
}

func (m *Metrics) IncrementAwardCascaded() {
	if m == nil {
		return
	}
	m.AwardsCascaded.Inc()
}

func (m *Metrics) IncrementAwardRejected() {
	if m == nil {
		return
	}
	m.AwardsRejected.Inc()
}

func (m *Metrics) IncrementProgressUpdate() {
	if m == nil {
		return
	}
	m.ProgressUpdates.Inc()
}

func (m *Metrics) IncrementNominationCreated() {
	if m == nil {
		return
	}
	m.NominationsCreated.Inc()
}

func (m *Metrics) IncrementClaimAttempt(outcome string) {
	if m == nil {
		return
	}
	m.ClaimsAttempted.WithLabelValues(outcome).Inc()
}

// ObserveAward records the duration of an award creation. Call with
// time.Now() at the start of the operation.
func (m *Metrics) ObserveAward(start time.Time) {
	if m == nil {
		return
	}
	m.AwardDuration.Observe(time.Since(start).Seconds())
}

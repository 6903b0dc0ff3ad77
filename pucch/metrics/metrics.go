// Package metrics instruments the PUCCH core with Prometheus counters and
// histograms, in the style of controlplane/controller's metrics.go: plain
// prometheus.NewCounterVec/NewHistogram construction, registered by the
// caller rather than on package import.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder wraps the PUCCH core's Prometheus instruments. A nil *Recorder
// is valid and makes every Observe* call a no-op, so library code can
// always call through it without a nil check at every call site.
type Recorder struct {
	grantsTotal        *prometheus.CounterVec
	allocFailuresTotal *prometheus.CounterVec
	multiplexMerges    prometheus.Counter
	effectiveCodeRate  prometheus.Histogram
	deltaPRI           prometheus.Histogram
}

// New builds a Recorder and registers its instruments against reg. Pass a
// prometheus.NewRegistry() in tests to avoid colliding with other tests'
// registrations of the same metric names.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		grantsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pucch_grants_total",
			Help: "Total PUCCH grants emitted, by kind (harq, sr, csi).",
		}, []string{"kind"}),
		allocFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pucch_alloc_failures_total",
			Help: "Total PUCCH allocation failures, by reason.",
		}, []string{"reason"}),
		multiplexMerges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pucch_multiplex_merges_total",
			Help: "Total number of PUCCH grant merges performed by the multiplexing algorithm.",
		}),
		effectiveCodeRate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pucch_effective_code_rate",
			Help:    "Effective code rate of emitted Format 2/3/4 PUCCH grants.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8},
		}),
		deltaPRI: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pucch_delta_pri",
			Help:    "Δ_PRI chosen by the common-resource search.",
			Buckets: prometheus.LinearBuckets(0, 1, 8),
		}),
	}
	for _, c := range []prometheus.Collector{r.grantsTotal, r.allocFailuresTotal, r.multiplexMerges, r.effectiveCodeRate, r.deltaPRI} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveGrant records one emitted grant of the given kind ("harq", "sr",
// "csi").
func (r *Recorder) ObserveGrant(kind string) {
	if r == nil {
		return
	}
	r.grantsTotal.WithLabelValues(kind).Inc()
}

// ObserveFailure records one local allocation failure of the given reason.
func (r *Recorder) ObserveFailure(reason string) {
	if r == nil {
		return
	}
	r.allocFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveMerge records one multiplexing merge.
func (r *Recorder) ObserveMerge() {
	if r == nil {
		return
	}
	r.multiplexMerges.Inc()
}

// ObserveCodeRate records the effective code rate of an emitted Format 2/3/4
// grant.
func (r *Recorder) ObserveCodeRate(rate float64) {
	if r == nil {
		return
	}
	r.effectiveCodeRate.Observe(rate)
}

// ObserveDeltaPRI records the Δ_PRI chosen by the common-resource search.
func (r *Recorder) ObserveDeltaPRI(delta int) {
	if r == nil {
		return
	}
	r.deltaPRI.Observe(float64(delta))
}

// Package promhook counts cache events as Prometheus metrics.
package promhook

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unkn0wn-root/streamcache"
)

type Hooks struct {
	selfHeals    *prometheus.CounterVec
	rejected     prometheus.Counter
	rejectedSize prometheus.Counter
	commitFailed prometheus.Counter
	genErrors    *prometheus.CounterVec
	outages      prometheus.Counter
	gatherer     prometheus.Gatherer
}

var _ streamcache.Hooks = (*Hooks)(nil)

// New registers the cache counters with reg. A nil reg uses a fresh
// registry, reachable through Handler. Counters that are already registered
// (a second cache in the same process) are reused.
func New(namespace string, reg prometheus.Registerer) (*Hooks, error) {
	var g prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, g = r, r
	} else if gr, ok := reg.(prometheus.Gatherer); ok {
		g = gr
	}

	h := &Hooks{gatherer: g}
	var err error
	if h.selfHeals, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "streamcache",
		Name:      "self_heals_total",
		Help:      "Stored blobs dropped on read, by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if h.rejected, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "streamcache",
		Name:      "provider_set_rejected_total",
		Help:      "Commits the provider refused to admit.",
	})); err != nil {
		return nil, err
	}
	if h.rejectedSize, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "streamcache",
		Name:      "provider_set_rejected_bytes_total",
		Help:      "Bytes of framed blobs the provider refused to admit.",
	})); err != nil {
		return nil, err
	}
	if h.commitFailed, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "streamcache",
		Name:      "commit_failures_total",
		Help:      "Write handle commits that failed and left the cache unchanged.",
	})); err != nil {
		return nil, err
	}
	if h.genErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "streamcache",
		Name:      "gen_errors_total",
		Help:      "Generation store failures, by operation.",
	}, []string{"op"})); err != nil {
		return nil, err
	}
	if h.outages, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "streamcache",
		Name:      "delete_outages_total",
		Help:      "Deletes where both the gen bump and the provider delete failed.",
	})); err != nil {
		return nil, err
	}
	return h, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// Handler serves the registry the counters were registered with.
func (h *Hooks) Handler() http.Handler {
	return promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})
}

func (h *Hooks) SelfHeal(_ string, reason string) { h.selfHeals.WithLabelValues(reason).Inc() }

func (h *Hooks) ProviderSetRejected(_ string, size int) {
	h.rejected.Inc()
	h.rejectedSize.Add(float64(size))
}

func (h *Hooks) CommitFailed(string, error)        { h.commitFailed.Inc() }
func (h *Hooks) GenSnapshotError(string, error)    { h.genErrors.WithLabelValues("snapshot").Inc() }
func (h *Hooks) GenBumpError(string, error)        { h.genErrors.WithLabelValues("bump").Inc() }
func (h *Hooks) DeleteOutage(string, error, error) { h.outages.Inc() }

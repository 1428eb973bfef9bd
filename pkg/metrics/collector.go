package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/withgalaxy/stash/pkg/stash"
)

// Collector exports stash write outcomes as Prometheus metrics.
type Collector struct {
	commits    *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	changed    *prometheus.CounterVec
	listeners  *prometheus.GaugeVec
}

var _ stash.Observer = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "commits_total",
			Help:      "Writes that changed the state and notified listeners.",
		}, []string{"store"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "suppressed_total",
			Help:      "Writes dropped because the merged state was shallowly equal.",
		}, []string{"store"}),
		changed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stash",
			Name:      "changed_keys_total",
			Help:      "Keys changed by committed writes.",
		}, []string{"store"}),
		listeners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stash",
			Name:      "listeners",
			Help:      "Registered listeners.",
		}, []string{"store"}),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{c.commits, c.suppressed, c.changed, c.listeners} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) Committed(store string, changed []string) {
	c.commits.WithLabelValues(store).Inc()
	c.changed.WithLabelValues(store).Add(float64(len(changed)))
}

func (c *Collector) Suppressed(store string) {
	c.suppressed.WithLabelValues(store).Inc()
}

func (c *Collector) ListenersChanged(store string, count int) {
	c.listeners.WithLabelValues(store).Set(float64(count))
}

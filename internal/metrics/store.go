package metrics

import "github.com/prometheus/client_golang/prometheus"

// Counter reports collection sizes.
type Counter interface {
	Counts() map[string]int
}

// StoreCollector exports the current size of every store collection at
// scrape time.
type StoreCollector struct {
	store Counter
	desc  *prometheus.Desc
}

// NewStoreCollector builds a collector over store.
func NewStoreCollector(store Counter) *StoreCollector {
	return &StoreCollector{
		store: store,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "records"),
			"Records currently held per collection.",
			[]string{"collection"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	for name, n := range c.store.Counts() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), name)
	}
}

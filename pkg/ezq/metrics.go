package ezq

import (
	"github.com/prometheus/client_golang/prometheus"
)

type queueMetrics struct {
	pushes         prometheus.Counter
	pops           prometheus.Counter
	overflowPushes prometheus.Counter
	migrations     prometheus.Counter
	rejections     *prometheus.CounterVec

	ringItems     prometheus.Gauge
	overflowItems prometheus.Gauge
}

func newQueueMetrics(reg prometheus.Registerer, name string) (*queueMetrics, error) {
	labels := prometheus.Labels{"queue": name}
	counter := func(metric, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ezqueue",
			Subsystem:   "queue",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(metric, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ezqueue",
			Subsystem:   "queue",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &queueMetrics{
		pushes:         counter("pushes_total", "Total number of successful pushes"),
		pops:           counter("pops_total", "Total number of successful pops"),
		overflowPushes: counter("overflow_pushes_total", "Pushes that landed in the overflow list"),
		migrations:     counter("migrations_total", "Items moved from the overflow list into the ring on pop"),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ezqueue",
			Subsystem:   "queue",
			Name:        "rejections_total",
			Help:        "Failed operations by status",
			ConstLabels: labels,
		}, []string{"status"}),
		ringItems:     gauge("ring_items", "Items currently held in the ring"),
		overflowItems: gauge("overflow_items", "Items currently held in the overflow list"),
	}

	for _, c := range []prometheus.Collector{
		m.pushes, m.pops, m.overflowPushes, m.migrations, m.rejections, m.ringItems, m.overflowItems,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *queueMetrics) recordPush(overflow bool, ring, list int) {
	m.pushes.Inc()
	if overflow {
		m.overflowPushes.Inc()
	}
	m.setSize(ring, list)
}

func (m *queueMetrics) recordPop(migrated bool, ring, list int) {
	m.pops.Inc()
	if migrated {
		m.migrations.Inc()
	}
	m.setSize(ring, list)
}

func (m *queueMetrics) recordReject(s Status) {
	m.rejections.WithLabelValues(s.String()).Inc()
}

func (m *queueMetrics) setSize(ring, list int) {
	m.ringItems.Set(float64(ring))
	m.overflowItems.Set(float64(list))
}

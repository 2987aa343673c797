package cart

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	mutations *prometheus.CounterVec
	items     prometheus.Gauge
	confirmed prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_mutations_total",
				Help: "Cart quantity changes applied to the store",
			},
			[]string{"action"},
		),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_items",
			Help: "Units currently in the cart as of the last cart render",
		}),
		confirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_orders_confirmed_total",
			Help: "Orders confirmed",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.mutations, m.items, m.confirmed)
	}
	return m
}

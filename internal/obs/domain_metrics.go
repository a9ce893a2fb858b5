package obs

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics groups collectors for pricing and checkout activity.
type DomainMetrics struct {
	CouponValidations *prometheus.CounterVec
	OrdersCreated     prometheus.Counter
	CheckoutDur       prometheus.Histogram
}

// NewDomainMetrics registers and returns the pricing domain collectors.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		CouponValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validations_total",
			Help:      "Coupon validation attempts by outcome.",
		}, []string{"outcome"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created through checkout.",
		}),
		CheckoutDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_ms",
			Help:      "End-to-end checkout latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
	}
	for _, c := range []prometheus.Collector{m.CouponValidations, m.OrdersCreated, m.CheckoutDur} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
	return m
}

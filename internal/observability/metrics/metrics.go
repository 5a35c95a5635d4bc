// Package metrics exposes application-level prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics counts the financial-path outcomes worth alerting on.
type Metrics struct {
	Deductions        *prometheus.CounterVec
	InsufficientFunds prometheus.Counter
	TopUps            prometheus.Counter
	DuplicateTopUps   prometheus.Counter
	Adjustments       prometheus.Counter
	ReferralRewards   prometheus.Counter
	UsageEventErrors  prometheus.Counter
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Deductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kredo",
			Name:      "wallet_deductions_total",
			Help:      "Successful metered deductions by action type.",
		}, []string{"action_type"}),
		InsufficientFunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kredo",
			Name:      "wallet_insufficient_funds_total",
			Help:      "Deductions rejected by the non-negative balance invariant.",
		}),
		TopUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kredo",
			Name:      "wallet_topups_total",
			Help:      "Credited top-ups.",
		}),
		DuplicateTopUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kredo",
			Name:      "wallet_topups_deduplicated_total",
			Help:      "Top-ups suppressed by the payment idempotency key.",
		}),
		Adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kredo",
			Name:      "wallet_adjustments_total",
			Help:      "Administrative balance adjustments.",
		}),
		ReferralRewards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kredo",
			Name:      "referral_rewards_total",
			Help:      "Referral rewards paid out.",
		}),
		UsageEventErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kredo",
			Name:      "usage_event_errors_total",
			Help:      "Usage events that failed to record after a committed debit.",
		}),
	}

	collectors := []prometheus.Collector{
		m.Deductions,
		m.InsufficientFunds,
		m.TopUps,
		m.DuplicateTopUps,
		m.Adjustments,
		m.ReferralRewards,
		m.UsageEventErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func provide() (*Metrics, error) {
	return New(prometheus.DefaultRegisterer)
}

var Module = fx.Module("observability.metrics",
	fx.Provide(provide),
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles the service counters. A single instance is created in main
// and passed to the components that record into it.
type Metrics struct {
	Registry *prometheus.Registry

	OrdersCreated    prometheus.Counter
	OrderTransitions *prometheus.CounterVec
	CaptchaAttempts  *prometheus.CounterVec
	TelegramSends    *prometheus.CounterVec
	WebhookUpdates   prometheus.Counter
	ChatMessages     prometheus.Counter
	RateLimited      *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders successfully created.",
		}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		CaptchaAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captcha_attempts_total",
			Help:      "Captcha verification attempts by result.",
		}, []string{"result"}),
		TelegramSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_messages_total",
			Help:      "Telegram notifications sent by action.",
		}, []string{"action"}),
		WebhookUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_updates_total",
			Help:      "Inbound Telegram webhook updates processed.",
		}),
		ChatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages processed by the responder.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter, by surface.",
		}, []string{"surface"}),
	}

	reg.MustRegister(
		m.OrdersCreated,
		m.OrderTransitions,
		m.CaptchaAttempts,
		m.TelegramSends,
		m.WebhookUpdates,
		m.ChatMessages,
		m.RateLimited,
	)

	return m
}

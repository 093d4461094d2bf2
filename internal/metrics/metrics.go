// Package metrics — счетчики Prometheus для движка верификации и доставки уведомлений.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions считает попытки переходов по типу и результату (ok, replay, forbidden, ...).
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackid_verification_transitions_total",
		Help: "Total number of verification transitions by type and result",
	}, []string{"transition", "result"})

	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackid_notifications_created_total",
		Help: "Total number of notification records created by type",
	}, []string{"type"})

	// DeliveryFailures — ошибки доставки в каналы (Redis, подписки); на переход не влияют.
	DeliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackid_notification_delivery_failures_total",
		Help: "Total number of failed fire-and-forget notification deliveries by channel",
	}, []string{"channel"})

	KarmaEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackid_karma_ledger_entries_total",
		Help: "Total number of karma ledger entries by kind",
	}, []string{"kind"})

	// KarmaInconsistencies — списания, которые увели бы карму ниже нуля.
	KarmaInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackid_karma_inconsistencies_total",
		Help: "Total number of karma decrements clamped at zero",
	})
)

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal) }

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Owner notifications by kind and delivery result.",
	},
	[]string{"kind", "result"}, // result: 'published', 'dropped', 'failed'
)

func IncNotification(kind, result string) {
	notificationsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

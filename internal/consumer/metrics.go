package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Message outcomes recorded on messages_total.
const (
	outcomeStored    = "stored"
	outcomeMalformed = "malformed"
)

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "audit",
		Name:      "messages_total",
		Help:      "Roster event records read from Kafka, by topic and outcome.",
	}, []string{"topic", "outcome"})

	storeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "audit",
		Name:      "store_failures_total",
		Help:      "Failed attempts to append a roster event to the audit log.",
	}, []string{"topic", "event_type"})

	storeRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "audit",
		Name:      "store_retries_total",
		Help:      "Retries issued after a failed audit log append.",
	}, []string{"topic"})

	lastStoredGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "audit",
		Name:      "last_stored_event_timestamp_seconds",
		Help:      "Kafka timestamp of the newest roster event committed to the audit log.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messagesCounter, storeFailures, storeRetries, lastStoredGauge)
}

func recordProcessed(msg Message) {
	messagesCounter.WithLabelValues(msg.Topic, outcomeStored).Inc()
	if !msg.Timestamp.IsZero() {
		lastStoredGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	storeFailures.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordHandlerRetry(msg Message) {
	storeRetries.WithLabelValues(msg.Topic).Inc()
}

func recordDecodeError(topic string) {
	messagesCounter.WithLabelValues(topic, outcomeMalformed).Inc()
}

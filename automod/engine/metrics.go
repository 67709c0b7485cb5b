package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messageProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "modcore_message_duration_sec",
	Help: "Total duration of message processing",
})

var messageVerdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_message_processed",
	Help: "Number of messages processed, by verdict",
}, []string{"verdict"})

var messageErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modcore_message_errors",
	Help: "Number of messages which failed processing",
})

var escalationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_spam_escalations",
	Help: "Number of spam escalation steps taken (or skipped, for 'quota')",
}, []string{"type"})

var notificationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_notifications_sent",
	Help: "Number of notifications sent, by kind",
}, []string{"kind"})

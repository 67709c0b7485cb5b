package spam

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modcore_spam_verdicts",
	Help: "Number of messages checked for spam, by verdict",
}, []string{"verdict"})

var checkErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modcore_spam_check_errors",
	Help: "Number of spam checks which failed (count store errors)",
})

var detectorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modcore_spam_detectors",
	Help: "Number of per-scope spam detectors created",
})

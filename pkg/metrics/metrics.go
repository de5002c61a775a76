package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "igap", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "igap", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	PostOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "igap", Name: "post_operations_total", Help: "Post service calls by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	// StorageInconsistencies counts writes that left the file index and the
	// body files out of step (orphan bodies, index entries without a body).
	StorageInconsistencies = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "igap", Name: "storage_inconsistencies_total", Help: "Body/index operations that partially failed."},
		[]string{"operation"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(PostOperations)
	reg.MustRegister(StorageInconsistencies)
}

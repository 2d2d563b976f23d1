package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var directFallbacks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "upload_direct_fallbacks_total",
		Help: "Direct-tier upload failures that fell back to the proxy tier, by reason.",
	},
	[]string{"reason"},
)

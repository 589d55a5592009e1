package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "light_auth_ratelimit_decisions_total",
		Help: "Rate limit decisions by outcome (allowed, rejected, skipped)",
	}, []string{"outcome"})

	storeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "light_auth_ratelimit_store_errors_total",
		Help: "Rate limit store failures; the request is let through",
	})
)

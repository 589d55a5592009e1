package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "light_auth_logins_total",
		Help: "Completed login attempts by provider, method and outcome",
	}, []string{"provider", "method", "outcome"})

	sessionsRenewedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "light_auth_sessions_renewed_total",
		Help: "Sessions whose expiry was extended on use",
	})

	sessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "light_auth_sessions_expired_total",
		Help: "Expired sessions deleted on read",
	})
)

func recordLogin(provider, method string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	loginsTotal.WithLabelValues(provider, method, outcome).Inc()
}

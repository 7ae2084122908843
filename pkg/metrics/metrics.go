// Package metrics exposes the portal's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts authenticate calls by outcome. The decoy
	// response hides outcomes from callers; metrics are the only place
	// the distinction exists.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quietpost_login_attempts_total",
		Help: "Authenticate attempts by outcome (granted, denied, throttled).",
	}, []string{"outcome"})

	// AuthFailures counts requests rejected for a missing or invalid
	// session token.
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quietpost_auth_failures_total",
		Help: "Requests rejected with a uniform 401.",
	})

	// MessagesAppended counts records appended to the shared log.
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quietpost_messages_appended_total",
		Help: "Records appended to the message log.",
	})

	// LogResets counts privileged clear operations.
	LogResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quietpost_log_resets_total",
		Help: "Privileged resets of the message log.",
	})

	// DecryptFailures counts records substituted with the unreadable
	// sentinel during list.
	DecryptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quietpost_decrypt_failures_total",
		Help: "Records that failed AEAD verification during list.",
	})

	// NotifyFailures counts swallowed webhook errors.
	NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quietpost_notify_failures_total",
		Help: "Best-effort webhook notifications that failed.",
	})

	// RequestDuration observes handler latency by route and status code.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quietpost_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "code"})
)

package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recentViewEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fincms_recent_view_evictions_total",
		Help: "Recent-view rows removed because a user exceeded the per-user cap.",
	})
	contentReleaseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fincms_content_release_failures_total",
		Help: "Content handles that could not be released after a delete or failed insert.",
	})
	integrityErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fincms_content_integrity_errors_total",
		Help: "Active documents whose content handle no longer resolves.",
	})
)

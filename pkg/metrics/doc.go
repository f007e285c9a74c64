/*
Package metrics provides Prometheus metrics and health reporting for CityFix.

# Prometheus Metrics

All metrics are registered with the default registry in init() and served
by Handler() under /metrics.

Domain gauges, refreshed by the Collector every 15 seconds:

	cityfix_issues_total{status}        issues per lifecycle status
	cityfix_issues_boosted_total        boosted issues
	cityfix_users_total{role}           accounts per role
	cityfix_events_dropped_total        events lost to full subscribers

Counters updated inline by the services:

	cityfix_payments_total{kind,status}         settled and failed payments
	cityfix_notifications_created_total{kind}   notifications written
	cityfix_api_requests_total{method,route,status}
	cityfix_api_rate_limited_total

Histograms:

	cityfix_api_request_duration_seconds{method,route}

Routes are chi route patterns ("/api/issues/{id}"), never raw paths, so
label cardinality stays bounded.

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method, route)

# Health

Components push their state into a process-wide registry:

	metrics.RegisterComponent(metrics.ComponentStorage, true, "")
	metrics.UpdateComponent(metrics.ComponentPayments, false, "stripe key missing")

/health is unhealthy (503) when any component is unhealthy. /ready is 503
until storage, events and api are registered and healthy; other
components such as payments are informational. The Collector re-pings
storage on every pass so a failing database flips readiness.
*/
package metrics

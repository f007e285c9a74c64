/*
Package api implements the CityFix REST API on a chi router.

Every route lives under /api/v1 except the probes (/health, /ready, /live)
and /metrics. The middleware chain, outermost first:

	RequestID → [RealIP] → instrument (metrics + access log) → Recoverer → CORS
	  └─ /api/v1: RateLimiter → per-group auth (Authenticate / Optional / RequireRole)

RealIP is only installed when Config.TrustProxy is set. Without it the rate
limiter keys on the peer address and forwarding headers are ignored.

# Routes

	POST   /auth/register                 citizen sign-up, returns a session
	POST   /auth/login
	GET    /issues                        boosted-first listing (search, status,
	                                      priority, category, sort, page, limit)
	GET    /issues/resolved               latest resolved issues
	GET    /issues/{id}
	POST   /issues                        report (citizen)
	PATCH  /issues/{id}                   edit while pending (reporter)
	DELETE /issues/{id}                   reporter while pending, or admin
	POST   /issues/{id}/upvote
	GET    /issues/{id}/transitions       statuses the caller may move to
	POST   /issues/{id}/status            lifecycle transition
	POST   /issues/{id}/assign            admin
	GET    /issues/{id}/messages          issue thread (participants)
	POST   /issues/{id}/messages
	GET    /staff/issues                  assigned issues (staff)
	POST   /contact                       contact form, token optional
	POST   /payments/checkout             premium or boost
	POST   /payments/confirm
	POST   /payments/webhook              Stripe, signature verified
	GET    /me, PATCH /me, /me/issues, /me/stats, /me/payments, /me/notifications...
	       /admin/stats, /admin/staff, /admin/citizens, /admin/payments,
	       /admin/revenue, /admin/messages (admin)

# Errors

Services return errors wrapped around containerd/errdefs classes; StatusFor
is the single mapping to HTTP codes:

	InvalidArgument     400
	Unauthenticated     401
	PermissionDenied    403
	NotFound            404
	AlreadyExists       409
	FailedPrecondition  422
	ResourceExhausted   402 (free issue quota)
	Unavailable         503
	anything else       500, logged, generic body

The error body is {"error": "...", "requestId": "..."} with the class
suffix trimmed from the message.
*/
package api

/*
Package payments sells premium accounts and issue boosts through a hosted
checkout provider.

A purchase starts with Checkout, which records a pending payment against
the provider session. The payment settles when the client returns and calls
Confirm, or when the provider delivers a signed webhook, whichever comes
first:

	pending ──paid──▶ paid      (premium unlocked or issue boosted)
	pending ──expired──▶ failed

Settlement is idempotent. A session observed as paid twice applies its
effect twice, which is harmless, and publishes payment.succeeded once.

StripeGateway is the production Gateway. Without a configured secret key the
service runs with a nil gateway and every checkout operation returns
ErrDisabled.
*/
package payments

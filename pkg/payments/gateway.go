package payments

import (
	"context"

	"github.com/cuemby/cityfix/pkg/types"
)

// CheckoutRequest describes a one-off hosted checkout
type CheckoutRequest struct {
	PaymentID     string
	Kind          types.PaymentKind
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CheckoutSession is the provider's view of a checkout
type CheckoutSession struct {
	ID       string
	URL      string
	Paid     bool
	Expired  bool
	Amount   int64
	Currency string
}

// Webhook event types handled by the service
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// WebhookEvent is a verified provider notification
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// Gateway is a hosted checkout provider
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckout(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

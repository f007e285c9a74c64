package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/metrics"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrDisabled is returned when no payment gateway is configured
	ErrDisabled = fmt.Errorf("payments are not configured: %w", errdefs.ErrUnavailable)

	// ErrForbidden is returned when the caller may not pay for or read a payment
	ErrForbidden = fmt.Errorf("forbidden: %w", errdefs.ErrPermissionDenied)

	// ErrAlreadyPremium is returned when a premium account buys premium again
	ErrAlreadyPremium = fmt.Errorf("account is already premium: %w", errdefs.ErrFailedPrecondition)

	// ErrAlreadyBoosted is returned when paying to boost a boosted issue
	ErrAlreadyBoosted = fmt.Errorf("issue is already boosted: %w", errdefs.ErrFailedPrecondition)

	// ErrNotBoostable is returned for closed or rejected issues
	ErrNotBoostable = fmt.Errorf("closed or rejected issues cannot be boosted: %w", errdefs.ErrFailedPrecondition)
)

// Booster applies a paid boost to an issue
type Booster interface {
	Boost(issueID, actorID string) (*types.Issue, bool, error)
}

// Publisher receives payment events
type Publisher interface {
	Publish(event *events.Event)
}

// Config holds prices and redirect URLs
type Config struct {
	PremiumAmount int64
	BoostAmount   int64
	Currency      string
	// SuccessURL may contain {CHECKOUT_SESSION_ID}, which the provider fills in
	SuccessURL string
	CancelURL  string
}

// Service sells premium accounts and issue boosts
type Service struct {
	store   storage.Store
	gateway Gateway
	booster Booster
	events  Publisher
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService creates a payment service. A nil gateway disables checkout.
func NewService(store storage.Store, gateway Gateway, booster Booster, publisher Publisher, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		store:   store,
		gateway: gateway,
		booster: booster,
		events:  publisher,
		cfg:     cfg,
		logger:  log.WithComponent("payments"),
		now:     time.Now,
	}
}

// Enabled reports whether a gateway is configured
func (s *Service) Enabled() bool {
	return s.gateway != nil
}

// CheckoutResult is a pending payment and where to complete it
type CheckoutResult struct {
	Payment *types.Payment `json:"payment"`
	URL     string         `json:"url"`
}

// Checkout validates the purchase, opens a hosted checkout and records a
// pending payment
func (s *Service) Checkout(ctx context.Context, actor *types.User, kind types.PaymentKind, issueID string) (*CheckoutResult, error) {
	if s.gateway == nil {
		return nil, ErrDisabled
	}
	if actor.Blocked {
		return nil, fmt.Errorf("account is blocked: %w", errdefs.ErrPermissionDenied)
	}
	if actor.Role != types.RoleCitizen {
		return nil, fmt.Errorf("only citizens make payments: %w", ErrForbidden)
	}

	p := &types.Payment{
		ID:       uuid.New().String(),
		UserID:   actor.ID,
		Kind:     kind,
		Currency: s.cfg.Currency,
		Status:   types.PaymentStatusPending,
	}

	var description string
	switch kind {
	case types.PaymentKindPremium:
		user, err := s.store.GetUser(actor.ID)
		if err != nil {
			return nil, err
		}
		if user.Premium {
			return nil, ErrAlreadyPremium
		}
		p.Amount = s.cfg.PremiumAmount
		description = "CityFix Premium"

	case types.PaymentKindBoost:
		if issueID == "" {
			return nil, fmt.Errorf("issueId is required for a boost: %w", errdefs.ErrInvalidArgument)
		}
		issue, err := s.store.GetIssue(issueID)
		if err != nil {
			return nil, err
		}
		if issue.ReporterID != actor.ID {
			return nil, fmt.Errorf("only the reporter can boost an issue: %w", ErrForbidden)
		}
		if issue.Boosted {
			return nil, ErrAlreadyBoosted
		}
		if issue.Status.Terminal() {
			return nil, ErrNotBoostable
		}
		p.IssueID = issue.ID
		p.Amount = s.cfg.BoostAmount
		description = fmt.Sprintf("Boost: %s", issue.Title)

	default:
		return nil, fmt.Errorf("unknown payment kind %q: %w", kind, errdefs.ErrInvalidArgument)
	}

	session, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		PaymentID:     p.ID,
		Kind:          kind,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Description:   description,
		CustomerEmail: actor.Email,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
		Metadata: map[string]string{
			"payment_id": p.ID,
			"user_id":    p.UserID,
			"kind":       string(kind),
			"issue_id":   p.IssueID,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", actor.ID).Str("kind", string(kind)).Msg("Checkout creation failed")
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}

	p.SessionID = session.ID
	p.CreatedAt = s.now().UTC()
	if err := s.store.CreatePayment(p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("payment_id", p.ID).
		Str("user_id", p.UserID).
		Str("kind", string(kind)).
		Int64("amount", p.Amount).
		Msg("Checkout created")

	return &CheckoutResult{Payment: p, URL: session.URL}, nil
}

// Confirm asks the gateway for the state of a session the caller returned
// from and settles it when paid. Already settled payments are returned as is.
func (s *Service) Confirm(ctx context.Context, actor *types.User, sessionID string) (*types.Payment, error) {
	if s.gateway == nil {
		return nil, ErrDisabled
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("sessionId is required: %w", errdefs.ErrInvalidArgument)
	}

	p, err := s.store.GetPaymentBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.ID && actor.Role != types.RoleAdmin {
		return nil, fmt.Errorf("payment belongs to another user: %w", ErrForbidden)
	}
	if p.Status == types.PaymentStatusPaid {
		return p, nil
	}

	session, err := s.gateway.GetCheckout(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.settle(p, session)
}

// HandleWebhook verifies and applies a provider notification. Events that
// are not about checkout sessions are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrDisabled
	}
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if event.Session == nil {
		s.logger.Debug().Str("event_type", event.Type).Msg("Ignoring webhook event")
		return nil
	}

	p, err := s.store.GetPaymentBySession(event.Session.ID)
	if errdefs.IsNotFound(err) {
		// Sessions created outside CityFix
		s.logger.Warn().Str("session_id", event.Session.ID).Msg("Webhook for unknown checkout session")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.settle(p, event.Session)
	return err
}

// settle moves a pending payment to paid or failed. The status change is a
// compare-and-set so the payment.succeeded event fires once; the effects
// are idempotent and re-applied on every paid observation.
func (s *Service) settle(p *types.Payment, session *CheckoutSession) (*types.Payment, error) {
	switch {
	case session.Paid:
		transitioned := false
		paid, err := s.store.UpdatePayment(p.ID, func(p *types.Payment) error {
			if p.Status == types.PaymentStatusPaid {
				return nil
			}
			now := s.now().UTC()
			p.Status = types.PaymentStatusPaid
			p.PaidAt = &now
			transitioned = true
			return nil
		})
		if err != nil {
			return nil, err
		}
		if err := s.apply(paid); err != nil {
			return nil, err
		}
		if transitioned {
			s.succeeded(paid)
		}
		return paid, nil

	case session.Expired:
		failed, err := s.store.UpdatePayment(p.ID, func(p *types.Payment) error {
			if p.Status == types.PaymentStatusPending {
				p.Status = types.PaymentStatusFailed
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if failed.Status == types.PaymentStatusFailed {
			metrics.PaymentsTotal.WithLabelValues(string(failed.Kind), string(failed.Status)).Inc()
		}
		return failed, nil
	}
	return p, nil
}

func (s *Service) apply(p *types.Payment) error {
	switch p.Kind {
	case types.PaymentKindPremium:
		_, err := s.store.UpdateUser(p.UserID, func(u *types.User) error {
			u.Premium = true
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to unlock premium: %w", err)
		}
	case types.PaymentKindBoost:
		if _, _, err := s.booster.Boost(p.IssueID, p.UserID); err != nil {
			// A paid boost for a deleted issue cannot be applied
			if errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn().Str("payment_id", p.ID).Str("issue_id", p.IssueID).Msg("Boosted issue no longer exists")
				return nil
			}
			return fmt.Errorf("failed to boost issue: %w", err)
		}
	}
	return nil
}

func (s *Service) succeeded(p *types.Payment) {
	metrics.PaymentsTotal.WithLabelValues(string(p.Kind), string(p.Status)).Inc()

	s.logger.Info().
		Str("payment_id", p.ID).
		Str("user_id", p.UserID).
		Str("kind", string(p.Kind)).
		Int64("amount", p.Amount).
		Msg("Payment settled")

	meta := map[string]string{
		"user_id":    p.UserID,
		"kind":       string(p.Kind),
		"payment_id": p.ID,
	}
	if p.IssueID != "" {
		if issue, err := s.store.GetIssue(p.IssueID); err == nil {
			meta["title"] = issue.Title
		}
	}
	s.events.Publish(&events.Event{
		Type:     events.EventPaymentSucceeded,
		Message:  "Payment received",
		IssueID:  p.IssueID,
		ActorID:  p.UserID,
		Metadata: meta,
	})
}

// ListOwn returns the caller's payments, newest first
func (s *Service) ListOwn(userID string) ([]*types.Payment, error) {
	return s.store.ListPayments(storage.PaymentFilter{UserID: userID})
}

// List returns payments matching the filter, newest first
func (s *Service) List(f storage.PaymentFilter) ([]*types.Payment, error) {
	switch f.Kind {
	case "", types.PaymentKindPremium, types.PaymentKindBoost:
	default:
		return nil, fmt.Errorf("unknown payment kind %q: %w", f.Kind, errdefs.ErrInvalidArgument)
	}
	switch f.Status {
	case "", types.PaymentStatusPending, types.PaymentStatusPaid, types.PaymentStatusFailed:
	default:
		return nil, fmt.Errorf("unknown payment status %q: %w", f.Status, errdefs.ErrInvalidArgument)
	}
	return s.store.ListPayments(f)
}

// Revenue sums paid payments
type Revenue struct {
	Total    int64                       `json:"total"`
	Count    int                         `json:"count"`
	ByKind   map[types.PaymentKind]int64 `json:"byKind"`
	Currency string                      `json:"currency"`
}

// Revenue totals paid payments, optionally for one user
func (s *Service) Revenue(userID string) (*Revenue, error) {
	paid, err := s.store.ListPayments(storage.PaymentFilter{UserID: userID, Status: types.PaymentStatusPaid})
	if err != nil {
		return nil, err
	}
	r := &Revenue{
		ByKind: map[types.PaymentKind]int64{
			types.PaymentKindPremium: 0,
			types.PaymentKindBoost:   0,
		},
		Currency: s.cfg.Currency,
	}
	for _, p := range paid {
		r.Total += p.Amount
		r.Count++
		r.ByKind[p.Kind] += p.Amount
	}
	return r, nil
}

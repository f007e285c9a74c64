package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*CheckoutSession
	requests []CheckoutRequest
	webhook  *WebhookEvent
	failNext bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: make(map[string]*CheckoutSession)}
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext {
		g.failNext = false
		return nil, fmt.Errorf("provider down: %w", errdefs.ErrUnavailable)
	}
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	s := &CheckoutSession{ID: id, URL: "https://checkout.test/" + id, Amount: req.Amount, Currency: req.Currency}
	g.sessions[id] = s
	return s, nil
}

func (g *fakeGateway) GetCheckout(_ context.Context, id string) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, errdefs.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, sig string) (*WebhookEvent, error) {
	if sig != "valid" {
		return nil, fmt.Errorf("invalid webhook signature: %w", errdefs.ErrInvalidArgument)
	}
	return g.webhook, nil
}

func (g *fakeGateway) pay(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].Paid = true
}

type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) Publish(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// storeBooster boosts directly in storage
type storeBooster struct {
	store storage.Store
	calls int
}

func (b *storeBooster) Boost(id, actorID string) (*types.Issue, bool, error) {
	b.calls++
	changed := false
	issue, err := b.store.UpdateIssue(id, func(i *types.Issue) error {
		if !i.Boosted {
			i.Boosted = true
			changed = true
		}
		return nil
	})
	return issue, changed, err
}

type fixture struct {
	svc     *Service
	store   *storage.BoltStore
	gateway *fakeGateway
	booster *storeBooster
	events  *recorder
	citizen *types.User
	other   *types.User
	admin   *types.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:   store,
		gateway: newFakeGateway(),
		booster: &storeBooster{store: store},
		events:  &recorder{},
		citizen: &types.User{ID: "c1", Name: "Ann", Email: "ann@example.com", Role: types.RoleCitizen},
		other:   &types.User{ID: "c2", Name: "Bob", Email: "bob@example.com", Role: types.RoleCitizen},
		admin:   &types.User{ID: "a1", Name: "Root", Email: "root@example.com", Role: types.RoleAdmin},
	}
	for _, u := range []*types.User{f.citizen, f.other, f.admin} {
		require.NoError(t, store.CreateUser(u))
	}
	require.NoError(t, store.CreateIssue(&types.Issue{
		ID: "i1", Title: "Broken light", Status: types.IssueStatusPending, ReporterID: f.citizen.ID,
	}))

	f.svc = NewService(store, f.gateway, f.booster, f.events, Config{
		PremiumAmount: 1000,
		BoostAmount:   100,
		SuccessURL:    "https://app.test/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     "https://app.test/cancel",
	})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestCheckoutPremium(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Checkout(context.Background(), f.citizen, types.PaymentKindPremium, "")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_test_1", res.URL)
	assert.Equal(t, types.PaymentStatusPending, res.Payment.Status)
	assert.Equal(t, int64(1000), res.Payment.Amount)
	assert.Equal(t, "usd", res.Payment.Currency)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, res.Payment.ID, req.Metadata["payment_id"])
	assert.Equal(t, "ann@example.com", req.CustomerEmail)

	stored, err := f.store.GetPaymentBySession("cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, res.Payment.ID, stored.ID)
}

func TestCheckoutRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, f.admin, types.PaymentKindPremium, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Checkout(ctx, f.other, types.PaymentKindBoost, "i1")
	assert.ErrorIs(t, err, ErrForbidden, "only the reporter boosts")

	_, err = f.svc.Checkout(ctx, f.citizen, types.PaymentKindBoost, "")
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = f.svc.Checkout(ctx, f.citizen, types.PaymentKindBoost, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = f.svc.Checkout(ctx, f.citizen, "gold", "")
	assert.True(t, errdefs.IsInvalidArgument(err))

	blocked := *f.citizen
	blocked.Blocked = true
	_, err = f.svc.Checkout(ctx, &blocked, types.PaymentKindPremium, "")
	assert.True(t, errdefs.IsPermissionDenied(err))

	_, err = f.store.UpdateUser(f.citizen.ID, func(u *types.User) error { u.Premium = true; return nil })
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, f.citizen, types.PaymentKindPremium, "")
	assert.ErrorIs(t, err, ErrAlreadyPremium)

	_, err = f.store.UpdateIssue("i1", func(i *types.Issue) error { i.Status = types.IssueStatusRejected; return nil })
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, f.citizen, types.PaymentKindBoost, "i1")
	assert.ErrorIs(t, err, ErrNotBoostable)

	_, err = f.store.UpdateIssue("i1", func(i *types.Issue) error {
		i.Status = types.IssueStatusPending
		i.Boosted = true
		return nil
	})
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, f.citizen, types.PaymentKindBoost, "i1")
	assert.ErrorIs(t, err, ErrAlreadyBoosted)

	f.gateway.failNext = true
	_, err = f.svc.Checkout(ctx, f.other, types.PaymentKindPremium, "")
	assert.True(t, errdefs.IsUnavailable(err))
	payments, err := f.store.ListPayments(storage.PaymentFilter{})
	require.NoError(t, err)
	assert.Empty(t, payments, "failed checkouts are not recorded")
}

func TestConfirmPremium(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, f.citizen, types.PaymentKindPremium, "")
	require.NoError(t, err)
	sid := res.Payment.SessionID

	// Unpaid sessions stay pending
	p, err := f.svc.Confirm(ctx, f.citizen, sid)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPending, p.Status)

	_, err = f.svc.Confirm(ctx, f.other, sid)
	assert.ErrorIs(t, err, ErrForbidden)

	f.gateway.pay(sid)
	p, err = f.svc.Confirm(ctx, f.citizen, sid)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPaid, p.Status)
	require.NotNil(t, p.PaidAt)

	u, err := f.store.GetUser(f.citizen.ID)
	require.NoError(t, err)
	assert.True(t, u.Premium)

	// Second confirmation is a no-op
	_, err = f.svc.Confirm(ctx, f.admin, sid)
	require.NoError(t, err)
	assert.Equal(t, 1, f.events.count(events.EventPaymentSucceeded))

	_, err = f.svc.Confirm(ctx, f.citizen, "")
	assert.True(t, errdefs.IsInvalidArgument(err))
	_, err = f.svc.Confirm(ctx, f.citizen, "cs_unknown")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWebhookBoost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, f.citizen, types.PaymentKindBoost, "i1")
	require.NoError(t, err)
	sid := res.Payment.SessionID

	assert.True(t, errdefs.IsInvalidArgument(f.svc.HandleWebhook(ctx, []byte("{}"), "forged")))

	f.gateway.webhook = &WebhookEvent{ID: "evt_1", Type: EventCheckoutCompleted, Session: &CheckoutSession{ID: sid, Paid: true}}
	require.NoError(t, f.svc.HandleWebhook(ctx, []byte("{}"), "valid"))
	// Redelivery
	require.NoError(t, f.svc.HandleWebhook(ctx, []byte("{}"), "valid"))

	issue, err := f.store.GetIssue("i1")
	require.NoError(t, err)
	assert.True(t, issue.Boosted)
	assert.Equal(t, 1, f.events.count(events.EventPaymentSucceeded))

	f.events.mu.Lock()
	e := f.events.events[0]
	f.events.mu.Unlock()
	assert.Equal(t, f.citizen.ID, e.Metadata["user_id"])
	assert.Equal(t, "boost", e.Metadata["kind"])
	assert.Equal(t, "Broken light", e.Metadata["title"])

	p, err := f.store.GetPaymentBySession(sid)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPaid, p.Status)

	// Client confirmation after the webhook
	p, err = f.svc.Confirm(ctx, f.citizen, sid)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPaid, p.Status)
}

func TestWebhookExpiredAndIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, f.citizen, types.PaymentKindPremium, "")
	require.NoError(t, err)

	f.gateway.webhook = &WebhookEvent{ID: "evt_2", Type: "invoice.paid"}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "valid"))

	f.gateway.webhook = &WebhookEvent{ID: "evt_3", Type: EventCheckoutCompleted, Session: &CheckoutSession{ID: "cs_foreign", Paid: true}}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "valid"))

	f.gateway.webhook = &WebhookEvent{ID: "evt_4", Type: EventCheckoutExpired, Session: &CheckoutSession{ID: res.Payment.SessionID, Expired: true}}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "valid"))

	p, err := f.store.GetPaymentBySession(res.Payment.SessionID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusFailed, p.Status)

	u, err := f.store.GetUser(f.citizen.ID)
	require.NoError(t, err)
	assert.False(t, u.Premium)
}

func TestDisabled(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, nil, f.booster, f.events, Config{})
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	_, err := svc.Checkout(ctx, f.citizen, types.PaymentKindPremium, "")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = svc.Confirm(ctx, f.citizen, "cs_1")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, svc.HandleWebhook(ctx, nil, ""), ErrDisabled)
}

func TestListAndRevenue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	premium, err := f.svc.Checkout(ctx, f.citizen, types.PaymentKindPremium, "")
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, f.citizen, types.PaymentKindBoost, "i1")
	require.NoError(t, err)
	other, err := f.svc.Checkout(ctx, f.other, types.PaymentKindPremium, "")
	require.NoError(t, err)

	f.gateway.pay(premium.Payment.SessionID)
	f.gateway.pay(other.Payment.SessionID)
	_, err = f.svc.Confirm(ctx, f.citizen, premium.Payment.SessionID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, f.other, other.Payment.SessionID)
	require.NoError(t, err)

	own, err := f.svc.ListOwn(f.citizen.ID)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	paid, err := f.svc.List(storage.PaymentFilter{Status: types.PaymentStatusPaid})
	require.NoError(t, err)
	assert.Len(t, paid, 2)

	boosts, err := f.svc.List(storage.PaymentFilter{Kind: types.PaymentKindBoost})
	require.NoError(t, err)
	require.Len(t, boosts, 1)
	assert.Equal(t, types.PaymentStatusPending, boosts[0].Status)

	_, err = f.svc.List(storage.PaymentFilter{Kind: "gold"})
	assert.True(t, errdefs.IsInvalidArgument(err))
	_, err = f.svc.List(storage.PaymentFilter{Status: "refunded"})
	assert.True(t, errdefs.IsInvalidArgument(err))

	rev, err := f.svc.Revenue("")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), rev.Total)
	assert.Equal(t, 2, rev.Count)
	assert.Equal(t, int64(2000), rev.ByKind[types.PaymentKindPremium])
	assert.Equal(t, int64(0), rev.ByKind[types.PaymentKindBoost])

	mine, err := f.svc.Revenue(f.citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), mine.Total)
}

package checkout

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/payment"
)

type fakeOrderWriter struct {
	orders []*models.Order
	err    error
}

func (f *fakeOrderWriter) CreateOrder(_ context.Context, order *models.Order) error {
	if f.err != nil {
		return f.err
	}
	order.ID = uint64(len(f.orders)) + 1
	f.orders = append(f.orders, order)
	return nil
}

type fakeSessionClient struct {
	req   *payment.SessionRequest
	sess  *payment.HostedSession
	err   error
	calls int
}

func (f *fakeSessionClient) CreateHostedSession(_ context.Context, req *payment.SessionRequest) (*payment.HostedSession, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fakeObjectStore struct {
	uploads map[string][]byte
	err     error
}

func (f *fakeObjectStore) Upload(_ context.Context, objectPath string, r io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[objectPath] = raw
	return nil
}

func (f *fakeObjectStore) PublicURL(objectPath string) string {
	return "https://cdn.example.com/" + objectPath
}

type fixture struct {
	orchestrator *Orchestrator
	orders       *fakeOrderWriter
	sessions     *fakeSessionClient
	objects      *fakeObjectStore
	store        *cart.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := &fakeOrderWriter{}
	sessions := &fakeSessionClient{sess: &payment.HostedSession{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}}
	objects := &fakeObjectStore{}
	store := cart.NewStore(context.Background(), "user-1", cart.NewMemorySnapshotStore(), zap.NewNop())
	cfg := Config{SuccessURL: "https://shop.example.com/thanks", CancelURL: "https://shop.example.com/cart"}
	return &fixture{
		orchestrator: NewOrchestrator(orders, sessions, objects, cfg, zap.NewNop()),
		orders:       orders,
		sessions:     sessions,
		objects:      objects,
		store:        store,
	}
}

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.AddItem(ctx, models.CartItem{ID: 1, Name: "Rose Water", Price: 19.99, Image: "rose.jpg"}, 2))
	require.NoError(t, f.store.AddItem(ctx, models.CartItem{ID: 2, Name: "Dates", Price: 5.00, Image: "dates.jpg"}, 1))
}

func buyer() *models.Identity {
	return &models.Identity{ID: "user-1", Email: "buyer@example.com", BusinessName: "Corner Market"}
}

func TestSubmitUnauthenticated(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)

	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCard, nil, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, enum.CheckoutStateFailed, outcome.State)
	assert.True(t, outcome.State.IsTerminal())

	// No collaborator is touched and the cart survives intact.
	assert.Zero(t, f.sessions.calls)
	assert.Empty(t, f.orders.orders)
	assert.Len(t, f.store.Items(), 2)

	_, err = f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCard, &models.Identity{}, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCheck, buyer(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, enum.CheckoutStateFailed, outcome.State)
	assert.Empty(t, f.orders.orders)
	assert.Zero(t, f.sessions.calls)
}

func TestSubmitCardRedirects(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)

	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCard, buyer(), nil)
	require.NoError(t, err)

	assert.Equal(t, enum.CheckoutStateSubmitted, outcome.State)
	assert.True(t, outcome.State.IsTerminal())
	assert.Equal(t, "https://pay.example.com/cs_test_1", outcome.RedirectURL)
	assert.Empty(t, f.store.Items())

	// No local order: the order materializes from the payment webhook.
	assert.Empty(t, f.orders.orders)

	require.NotNil(t, f.sessions.req)
	assert.Equal(t, "user-1", f.sessions.req.CustomerRef)
	require.Len(t, f.sessions.req.Items, 2)
	assert.Equal(t, int64(1999), f.sessions.req.Items[0].UnitAmount)
	assert.Equal(t, uint64(2), f.sessions.req.Items[0].Quantity)
}

func TestSubmitCardSessionFailure(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.sessions.err = errors.New("stripe unreachable")

	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCard, buyer(), nil)
	assert.ErrorIs(t, err, ErrPaymentInitFailed)
	assert.Equal(t, enum.CheckoutStateFailed, outcome.State)

	// Failure leaves the cart untouched so the buyer can retry.
	assert.Len(t, f.store.Items(), 2)
	assert.Equal(t, 44.98, f.store.TotalPrice())
}

func TestSubmitCheckWritesPendingOrder(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)

	deposit := &CheckDeposit{FileName: "check.png", Content: bytes.NewReader([]byte("png-bytes"))}
	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCheck, buyer(), deposit)
	require.NoError(t, err)

	assert.Equal(t, enum.CheckoutStateSubmitted, outcome.State)
	assert.Equal(t, "https://shop.example.com/thanks", outcome.RedirectURL)
	assert.Equal(t, uint64(1), outcome.OrderID)
	assert.Empty(t, f.store.Items())

	require.Len(t, f.orders.orders, 1)
	order := f.orders.orders[0]
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, enum.OrderStatusPending, order.Status)
	assert.Equal(t, enum.PaymentTypeCheck, order.PaymentType)
	assert.Equal(t, 44.98, order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 39.98, order.Items[0].Subtotal)

	require.Len(t, f.objects.uploads, 1)
	for objectPath := range f.objects.uploads {
		assert.True(t, strings.HasPrefix(objectPath, "checks/user-1-"))
		assert.True(t, strings.HasSuffix(objectPath, ".png"))
		assert.Equal(t, "https://cdn.example.com/"+objectPath, order.CheckImageURL)
	}
}

func TestSubmitCheckWithoutDeposit(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)

	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCheck, buyer(), nil)
	require.NoError(t, err)

	assert.Equal(t, enum.CheckoutStateSubmitted, outcome.State)
	require.Len(t, f.orders.orders, 1)
	assert.Empty(t, f.orders.orders[0].CheckImageURL)
	assert.Empty(t, f.objects.uploads)
}

func TestSubmitCheckUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.objects.err = errors.New("bucket unavailable")

	deposit := &CheckDeposit{FileName: "check.png", Content: bytes.NewReader([]byte("png-bytes"))}
	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCheck, buyer(), deposit)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, enum.CheckoutStateFailed, outcome.State)

	// Nothing was written and the cart survives.
	assert.Empty(t, f.orders.orders)
	assert.Len(t, f.store.Items(), 2)
}

func TestSubmitCheckOrderWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.orders.err = errors.New("database unavailable")

	outcome, err := f.orchestrator.Submit(context.Background(), f.store, enum.PaymentTypeCheck, buyer(), nil)
	assert.ErrorIs(t, err, ErrOrderWriteFailed)
	assert.Equal(t, enum.CheckoutStateFailed, outcome.State)
	assert.Len(t, f.store.Items(), 2)
}

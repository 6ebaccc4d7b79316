// Package checkout turns the current cart into either a hosted-payment
// redirect or a persisted pending order, then clears the cart. One attempt
// runs idle → validating → {card_redirecting | writing_order} →
// {submitted | failed}; a failed attempt leaves the cart untouched and the
// caller may simply submit again.
package checkout

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"go.uber.org/zap"

	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/payment"
	"gofalre.io/storefront/storage"
)

// OrderWriter is the slice of the data-API collaborator checkout needs.
type OrderWriter interface {
	CreateOrder(ctx context.Context, order *models.Order) error
}

// CheckDeposit is an uploaded check or wire-transfer image accompanying a
// manual payment.
type CheckDeposit struct {
	FileName string
	Content  io.Reader
}

// Outcome is the terminal result of one checkout attempt.
type Outcome struct {
	State       enum.CheckoutState `json:"state"`
	RedirectURL string             `json:"redirect_url,omitempty"`
	OrderID     uint64             `json:"order_id,omitempty"`
}

// Config carries the redirect targets handed to the payment provider and
// used after a manual-payment submission.
type Config struct {
	SuccessURL string
	CancelURL  string
}

type Orchestrator struct {
	orders   OrderWriter
	payments payment.SessionClient
	objects  storage.ObjectStore
	cfg      Config
	logger   *zap.Logger
}

func NewOrchestrator(orders OrderWriter, payments payment.SessionClient, objects storage.ObjectStore, cfg Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		orders:   orders,
		payments: payments,
		objects:  objects,
		cfg:      cfg,
		logger:   logger,
	}
}

// Submit runs one checkout attempt against the given cart store. The cart is
// cleared only after the branch confirms success; any failure surfaces a
// failed outcome with the cart intact.
func (o *Orchestrator) Submit(ctx context.Context, store *cart.Store, method enum.PaymentType, identity *models.Identity, check *CheckDeposit) (*Outcome, error) {
	if identity == nil || identity.ID == "" {
		return failed(), ErrUnauthenticated
	}

	items := store.Items()
	if len(items) == 0 {
		return failed(), ErrEmptyCart
	}

	switch method {
	case enum.PaymentTypeCard:
		return o.submitCard(ctx, store, items, identity)
	default:
		// Any non-card method is treated as a manual payment.
		return o.submitCheck(ctx, store, items, identity, check)
	}
}

func (o *Orchestrator) submitCard(ctx context.Context, store *cart.Store, items models.Cart, identity *models.Identity) (*Outcome, error) {
	o.logger.Debug("Checkout state",
		zap.String("state", enum.CheckoutStateCardRedirecting.String()),
		zap.String("customer_id", identity.ID))

	sess, err := o.payments.CreateHostedSession(ctx, &payment.SessionRequest{
		CustomerRef: identity.ID,
		Items:       payment.LineItemsFromCart(items),
		SuccessURL:  o.cfg.SuccessURL,
		CancelURL:   o.cfg.CancelURL,
	})
	if err != nil {
		o.logger.Error("Hosted session creation failed",
			zap.String("customer_id", identity.ID), zap.Error(err))
		return failed(), fmt.Errorf("%w: %w", ErrPaymentInitFailed, err)
	}

	store.Clear(ctx)
	o.logger.Info("Checkout redirecting to hosted payment page",
		zap.String("customer_id", identity.ID), zap.String("session_id", sess.ID))

	return &Outcome{
		State:       enum.CheckoutStateSubmitted,
		RedirectURL: sess.URL,
	}, nil
}

func (o *Orchestrator) submitCheck(ctx context.Context, store *cart.Store, items models.Cart, identity *models.Identity, check *CheckDeposit) (*Outcome, error) {
	o.logger.Debug("Checkout state",
		zap.String("state", enum.CheckoutStateWritingOrder.String()),
		zap.String("customer_id", identity.ID))

	total := items.TotalPrice()

	var checkImageURL string
	if check != nil {
		objectPath := checkImagePath(identity.ID, check.FileName)
		if err := o.objects.Upload(ctx, objectPath, check.Content); err != nil {
			return failed(), fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		checkImageURL = o.objects.PublicURL(objectPath)
	}

	order := &models.Order{
		UserID:        identity.ID,
		Status:        enum.OrderStatusPending,
		Total:         total,
		PaymentType:   enum.PaymentTypeCheck,
		CheckImageURL: checkImageURL,
		Items:         orderItemsFromCart(items),
	}

	if err := o.orders.CreateOrder(ctx, order); err != nil {
		o.logger.Error("Order write failed",
			zap.String("customer_id", identity.ID), zap.Error(err))
		return failed(), fmt.Errorf("%w: %w", ErrOrderWriteFailed, err)
	}

	store.Clear(ctx)
	o.logger.Info("Order submitted for review",
		zap.String("customer_id", identity.ID),
		zap.Uint64("order_id", order.ID),
		zap.Float64("total", total))

	return &Outcome{
		State:       enum.CheckoutStateSubmitted,
		RedirectURL: o.cfg.SuccessURL,
		OrderID:     order.ID,
	}, nil
}

// checkImagePath scopes the upload by customer and timestamp so concurrent
// uploads cannot collide.
func checkImagePath(userID, fileName string) string {
	return fmt.Sprintf("checks/%s-%d%s", userID, time.Now().UnixMilli(), path.Ext(fileName))
}

func orderItemsFromCart(items models.Cart) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			ProductID: item.ID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal().Round(2).InexactFloat64(),
		})
	}
	return out
}

func failed() *Outcome {
	return &Outcome{State: enum.CheckoutStateFailed}
}

package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/order"
)

// PaymentEventSubjectPrefix is the NATS subject the webhook endpoint
// publishes verified payment events to, suffixed with the event type.
const PaymentEventSubjectPrefix = "payment.event"

type EventHandler func(context.Context, *stripe.Event) error

// EventManager routes payment-provider events from the bus to their
// registered handlers.
type EventManager struct {
	natsConn *nats.Conn
	handlers map[stripe.EventType]EventHandler
	logger   *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		handlers: make(map[stripe.EventType]EventHandler),
		logger:   logger,
	}
}

func (em *EventManager) RegisterHandler(eventType stripe.EventType, handler EventHandler) {
	em.handlers[eventType] = handler
}

func (em *EventManager) GetHandler(eventType stripe.EventType) (EventHandler, bool) {
	handler, exists := em.handlers[eventType]
	return handler, exists
}

func (em *EventManager) SubscribeToEvents(wp *WorkerPool) error {
	_, err := em.natsConn.Subscribe(PaymentEventSubjectPrefix+".>", func(msg *nats.Msg) {
		var evt stripe.Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.Error(err))
			return
		}

		wp.Submit(&evt)
	})

	return err
}

func (s *service) registerEventHandlers() {
	eventHandlers := map[stripe.EventType]EventHandler{
		stripe.EventTypePaymentIntentSucceeded:     s.handlePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed: s.handlePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:      s.handlePaymentIntentCanceled,
		stripe.EventTypeCheckoutSessionCompleted:   s.handleCheckoutSessionCompleted,
		stripe.EventTypeChargeRefunded:             s.handleChargeRefunded,
	}

	for eventType, handler := range eventHandlers {
		s.eventManager.RegisterHandler(eventType, handler)
	}
}

func (s *service) handlePaymentIntentSucceeded(ctx context.Context, evt *stripe.Event) error {
	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &paymentIntent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	return s.transitionOrderByPaymentIntent(ctx, paymentIntent.ID, enum.OrderStatusPaid)
}

func (s *service) handlePaymentIntentPaymentFailed(ctx context.Context, evt *stripe.Event) error {
	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &paymentIntent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	return s.transitionOrderByPaymentIntent(ctx, paymentIntent.ID, enum.OrderStatusFailed)
}

func (s *service) handlePaymentIntentCanceled(ctx context.Context, evt *stripe.Event) error {
	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &paymentIntent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	return s.transitionOrderByPaymentIntent(ctx, paymentIntent.ID, enum.OrderStatusCancelled)
}

// handleCheckoutSessionCompleted records a paid card order. The card branch
// of checkout only redirects; the order record materializes here, once the
// provider confirms the session.
func (s *service) handleCheckoutSessionCompleted(ctx context.Context, evt *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	if paymentIntentID != "" {
		existing, err := s.order.GetOrderByPaymentIntentID(ctx, nil, paymentIntentID)
		if err == nil {
			return s.transitionOrder(ctx, existing, enum.OrderStatusPaid)
		}
		if !errors.Is(err, order.ErrOrderNotFound) {
			return fmt.Errorf("failed to look up order for session %s: %w", session.ID, err)
		}
	}

	newOrder := &models.Order{
		UserID:          session.ClientReferenceID,
		Status:          enum.OrderStatusPaid,
		Total:           decimal.NewFromInt(session.AmountTotal).Div(decimal.NewFromInt(100)).InexactFloat64(),
		PaymentType:     enum.PaymentTypeCard,
		PaymentIntentID: paymentIntentID,
	}

	if err := s.transactionManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		return s.order.CreateOrder(ctx, tx, newOrder)
	}); err != nil {
		return fmt.Errorf("failed to create order for session %s: %w", session.ID, err)
	}

	s.logger.Info("Card order recorded from completed session",
		zap.String("session_id", session.ID), zap.Uint64("order_id", newOrder.ID))

	return nil
}

func (s *service) handleChargeRefunded(ctx context.Context, evt *stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(evt.Data.Raw, &charge); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	if charge.PaymentIntent == nil {
		return fmt.Errorf("charge %s carries no payment intent", charge.ID)
	}

	orderModel, err := s.order.GetOrderByPaymentIntentID(ctx, nil, charge.PaymentIntent.ID)
	if err != nil {
		return fmt.Errorf("failed to look up order for charge %s: %w", charge.ID, err)
	}

	totalMinor := decimal.NewFromFloat(orderModel.Total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	newStatus := enum.OrderStatusPartiallyRefunded
	if charge.AmountRefunded >= totalMinor {
		newStatus = enum.OrderStatusRefunded
	}

	return s.transitionOrder(ctx, orderModel, newStatus)
}

func (s *service) transitionOrderByPaymentIntent(ctx context.Context, paymentIntentID string, newStatus enum.OrderStatus) error {
	orderModel, err := s.order.GetOrderByPaymentIntentID(ctx, nil, paymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to look up order for payment intent %s: %w", paymentIntentID, err)
	}

	return s.transitionOrder(ctx, orderModel, newStatus)
}

func (s *service) transitionOrder(ctx context.Context, orderModel *models.Order, newStatus enum.OrderStatus) error {
	if orderModel.Status == newStatus {
		return nil
	}
	if !orderModel.AllowChangeStatus(newStatus) {
		return fmt.Errorf("invalid status transition from %s to %s for order %d",
			orderModel.Status, newStatus, orderModel.ID)
	}

	if err := s.order.UpdateOrderStatus(ctx, nil, orderModel.ID, newStatus); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("Order status updated",
		zap.Uint64("order_id", orderModel.ID),
		zap.String("status", newStatus.String()))

	return nil
}

// ProcessEvent handles one payment-provider event at most once: redelivered
// event ids are skipped.
func (s *service) ProcessEvent(ctx context.Context, evt *stripe.Event) error {
	if _, err := s.event.GetByID(ctx, evt.ID); err == nil {
		s.logger.Info("Event already processed", zap.String("event_id", evt.ID))
		return nil
	}

	handler, exists := s.eventManager.GetHandler(evt.Type)
	if !exists {
		return fmt.Errorf("no handler registered for event type: %s", evt.Type)
	}

	if err := s.event.Create(ctx, &models.Event{
		ID:        evt.ID,
		Type:      evt.Type,
		Processed: false,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	if err := handler(ctx, evt); err != nil {
		s.logger.Error("Failed to handle event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)),
			zap.Error(err),
		)
		return err
	}

	if err := s.event.MarkAsProcessed(ctx, evt.ID); err != nil {
		s.logger.Warn("Failed to mark event as processed", zap.String("event_id", evt.ID), zap.Error(err))
	}

	return nil
}

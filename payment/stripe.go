// Package payment creates hosted checkout sessions with the external payment
// provider. Card details never pass through this system; the provider hosts
// the payment page and reports the result back through webhook events.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/zap"

	"gofalre.io/storefront/models"
)

// LineItem is one purchasable line of a hosted session. UnitAmount is in the
// currency's minor unit.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   uint64
	Image      string
}

// HostedSession is the handle of a created hosted checkout page.
type HostedSession struct {
	ID  string
	URL string
}

// SessionRequest describes the hosted session to create. CustomerRef is
// carried through so webhook events can be tied back to the customer.
type SessionRequest struct {
	CustomerRef string
	Items       []LineItem
	SuccessURL  string
	CancelURL   string
}

// SessionClient is the payment collaborator consumed by checkout.
type SessionClient interface {
	CreateHostedSession(ctx context.Context, req *SessionRequest) (*HostedSession, error)
}

var _ SessionClient = (*StripeClient)(nil)

// StripeClient creates Stripe Checkout Sessions in payment mode.
type StripeClient struct {
	currency stripe.Currency
	logger   *zap.Logger
}

func NewStripeClient(apiKey string, currency stripe.Currency, logger *zap.Logger) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{
		currency: currency,
		logger:   logger,
	}
}

func (c *StripeClient) CreateHostedSession(ctx context.Context, req *SessionRequest) (*HostedSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		// Stripe only accepts absolute image URLs.
		if strings.HasPrefix(item.Image, "http://") || strings.HasPrefix(item.Image, "https://") {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(c.currency)),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: productData,
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.CustomerRef),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		c.logger.Error("Failed to create checkout session", zap.Error(err))
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &HostedSession{ID: sess.ID, URL: sess.URL}, nil
}

// LineItemsFromCart converts cart lines to hosted-session line items,
// converting unit prices to minor units.
func LineItemsFromCart(items models.Cart) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		unitAmount := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		out = append(out, LineItem{
			Name:       item.Name,
			UnitAmount: unitAmount,
			Quantity:   item.Quantity,
			Image:      item.Image,
		})
	}
	return out
}

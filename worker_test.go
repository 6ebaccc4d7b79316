package storefront

import (
	"context"
	"sync"
	"testing"

	"github.com/stripe/stripe-go/v79"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingProcessor struct {
	mu   sync.Mutex
	seen []string
}

func (p *countingProcessor) ProcessEvent(_ context.Context, event *stripe.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, event.ID)
	return nil
}

func TestWorkerPoolProcessesAllSubmittedEvents(t *testing.T) {
	processor := &countingProcessor{}
	wp := NewWorkerPool(4, processor, zap.NewNop())

	wp.Submit(&stripe.Event{ID: "evt_1", Type: stripe.EventTypePaymentIntentSucceeded})
	wp.Submit(&stripe.Event{ID: "evt_2", Type: stripe.EventTypePaymentIntentSucceeded})
	wp.Submit(&stripe.Event{ID: "evt_3", Type: stripe.EventTypeChargeRefunded})

	wp.Shutdown()

	assert.Len(t, processor.seen, 3)
	assert.ElementsMatch(t, []string{"evt_1", "evt_2", "evt_3"}, processor.seen)
}

package storefront

import (
	"context"
	"sync"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *stripe.Event) error
}

// WorkerPool processes payment events off the bus with a bounded number of
// goroutines.
type WorkerPool struct {
	tasks     chan *stripe.Event
	wg        sync.WaitGroup
	processor EventProcessor
	logger    *zap.Logger
}

func NewWorkerPool(size int, processor EventProcessor, logger *zap.Logger) *WorkerPool {
	wp := &WorkerPool{
		tasks:     make(chan *stripe.Event, 1000),
		processor: processor,
		logger:    logger,
	}

	for i := 0; i < size; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for event := range wp.tasks {
		if err := wp.processor.ProcessEvent(context.Background(), event); err != nil {
			wp.logger.Error("Failed to process event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID))
		}
	}
}

func (wp *WorkerPool) Submit(event *stripe.Event) {
	wp.tasks <- event
}

// Shutdown stops accepting events and waits for in-flight ones to finish.
func (wp *WorkerPool) Shutdown() {
	close(wp.tasks)
	wp.wg.Wait()
}

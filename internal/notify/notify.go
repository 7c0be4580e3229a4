// Package notify delivers best-effort event notifications to webhooks and Kafka.
// Delivery failures are logged and counted, never returned to the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"stocksense-backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Event struct {
	ID        string              `json:"id"`
	Type      models.WebhookEvent `json:"-"`
	Name      string              `json:"event"`
	Timestamp time.Time           `json:"timestamp"`
	Data      any                 `json:"data"`
}

func NewEvent(t models.WebhookEvent, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Name:      t.String(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Multi fans an event out to every sink in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}

// Async runs the wrapped notifier on its own goroutine with a context detached from
// the request, so a slow sink never holds up the operation that produced the event.
type Async struct {
	next    Notifier
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, log *zap.Logger) *Async {
	return &Async{next: next, timeout: timeout, log: log}
}

func (a *Async) Notify(ctx context.Context, ev Event) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("notifier panic", zap.String("event", ev.Name), zap.Any("panic", r))
			}
		}()

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		a.next.Notify(dctx, ev)
	}()
}

// Wait blocks until every in-flight delivery has returned.
func (a *Async) Wait() {
	a.wg.Wait()
}

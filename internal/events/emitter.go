package events

import (
	"context"
	"log"

	"texpro/internal/domain"
	"texpro/internal/domain/notification"
	"texpro/internal/pkg/clock"
)

// Buffer collects the events of one orchestrator operation. Services append
// while the transaction is open and flush through the Dispatcher only after
// the commit succeeds, so a rolled-back operation emits nothing.
type Buffer struct {
	actor  domain.Actor
	events []Event
}

func NewBuffer(actor domain.Actor) *Buffer {
	return &Buffer{actor: actor}
}

// Emit appends one event preserving order.
func (b *Buffer) Emit(e Event) {
	e.Actor = b.actor
	b.events = append(b.events, e)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	return b.events
}

// RecipientSource resolves event routing roles to concrete user ids.
type RecipientSource interface {
	ListByRoles(ctx context.Context, roles []domain.UserRole) ([]domain.User, error)
}

// Sink consumes routed events; the notification service is the production
// implementation.
type Sink interface {
	DeliverAll(ctx context.Context, userIDs []int64, d notification.Delivery)
}

// Dispatcher fans buffered events out to their recipients.
type Dispatcher struct {
	users RecipientSource
	sink  Sink
	clock clock.Clock
}

func NewDispatcher(users RecipientSource, sink Sink, clk clock.Clock) *Dispatcher {
	return &Dispatcher{users: users, sink: sink, clock: clk}
}

// Flush delivers every buffered event, in order. Recipient resolution errors
// skip the event rather than failing the already-committed operation.
func (d *Dispatcher) Flush(ctx context.Context, b *Buffer) {
	if b == nil {
		return
	}
	for _, e := range b.events {
		d.dispatch(ctx, e)
	}
	b.events = nil
}

func (d *Dispatcher) dispatch(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = d.clock.Now()
	}

	recipients := map[int64]bool{}
	users, err := d.users.ListByRoles(ctx, e.Kind.Roles())
	if err != nil {
		log.Printf("event routing failed kind=%s entity=%s/%d: %v", e.Kind, e.Entity.Type, e.Entity.ID, err)
		return
	}
	for _, u := range users {
		recipients[u.ID] = true
	}
	for _, id := range e.ExtraRecipients {
		if id > 0 {
			recipients[id] = true
		}
	}
	// The actor already knows what they did.
	delete(recipients, e.Actor.UserID)

	if len(recipients) == 0 {
		return
	}
	ids := make([]int64, 0, len(recipients))
	for id := range recipients {
		ids = append(ids, id)
	}

	d.sink.DeliverAll(ctx, ids, notification.Delivery{
		Type:          kindType(e.Kind),
		Priority:      e.Kind.Priority(),
		Title:         e.Title,
		Message:       e.Message,
		RelatedEntity: e.Entity.Type,
		RelatedID:     e.Entity.ID,
		Payload:       e.Payload,
	})
}

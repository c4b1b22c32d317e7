package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/queue"
)

// EventPublisher delivers rental lifecycle events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.RentalEvent) error
}

// NopPublisher drops every event. It is used when EVENTS_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.RentalEvent) error { return nil }

// publish sends ev with its own deadline so a cancelled request still
// emits the event for work that has already committed.
func publish(ctx context.Context, p EventPublisher, ev queue.RentalEvent) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{"event": ev.Type, "rental_id": ev.RentalID}).
			Warn("rental event not published")
	}
}

func rentalEvent(typ string, rt model.Rental, at time.Time) queue.RentalEvent {
	ev := queue.RentalEvent{
		Type:        typ,
		RentalID:    rt.ID,
		UserID:      rt.UserID,
		UserName:    rt.UserName,
		UmbrellaID:  rt.UmbrellaID,
		CreditsUsed: rt.CreditsUsed,
		RentedAt:    rt.RentedAt.UTC().Format(time.RFC3339),
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
	if rt.DeadlineAt != nil {
		ev.DeadlineAt = rt.DeadlineAt.UTC().Format(time.RFC3339)
	}
	if rt.ReturnedAt != nil {
		ev.ReturnedAt = rt.ReturnedAt.UTC().Format(time.RFC3339)
	}
	return ev
}

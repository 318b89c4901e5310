// Package outbox is the application-side door to the transactional
// outbox: operations record domain events here and a background worker
// ships them to the broker.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"islandstay/internal/domain/shared/events"
)

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

// Record serializes the given events and appends them to the outbox. A
// nil outbox drops them, which is how the service runs when no broker
// is configured.
func Record(ctx context.Context, box Outbox, evs ...events.DomainEvent) error {
	if box == nil {
		return nil
	}
	for _, ev := range evs {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
		}
		rec := EventRecord{
			ID:         uuid.NewString(),
			Name:       ev.EventName(),
			Payload:    payload,
			OccurredAt: ev.OccurredAt(),
			Aggregate:  ev.AggregateID(),
		}
		if err := box.Add(ctx, rec); err != nil {
			return fmt.Errorf("outbox: add %s: %w", ev.EventName(), err)
		}
	}
	return nil
}

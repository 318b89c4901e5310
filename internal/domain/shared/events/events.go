// Package events defines the contract a domain event must satisfy to
// travel through the outbox.
package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

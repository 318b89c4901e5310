// Package outbox drains recorded domain events from a durable store and
// publishes them to the broker as CloudEvents.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// EventDocument is a pending outbox row as the store hands it to the
// worker.
type EventDocument struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Store is the durable queue the worker drains. Claim returns nil when
// nothing is due.
type Store interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// maxBatch bounds how many events a single tick may publish so a large
// backlog cannot starve shutdown.
const maxBatch = 32

// Worker polls the store on an interval and publishes everything due,
// retrying failed publications with the configured backoff schedule.
type Worker struct {
	Store       Store
	Producer    Producer
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	interval := w.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	workerID := w.ID
	if workerID == "" {
		workerID = uuid.NewString()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx, workerID); err != nil {
				return err
			}
		}
	}
}

// drain claims and publishes due events until the store is empty or the
// batch limit is hit. Publish failures are recorded for retry, never
// returned: a broker outage must not stop the worker.
func (w *Worker) drain(ctx context.Context, workerID string) error {
	for i := 0; i < maxBatch; i++ {
		doc, err := w.Store.Claim(ctx, workerID)
		if err != nil {
			return fmt.Errorf("outbox: claim: %w", err)
		}
		if doc == nil {
			return nil
		}
		if err := w.publish(ctx, doc); err != nil {
			if w.Logger != nil {
				w.Logger.Warn("event publish failed, scheduling retry",
					"event_id", doc.ID, "event", doc.Name, "attempt", doc.Attempts+1, "error", err)
			}
			_ = w.Store.MarkFailed(ctx, doc.ID, time.Now().Add(w.backoffFor(doc.Attempts)), err.Error())
			continue
		}
		if err := w.Store.MarkSent(ctx, doc.ID); err != nil {
			return fmt.Errorf("outbox: mark sent %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (w *Worker) publish(ctx context.Context, doc *EventDocument) error {
	payload, err := json.Marshal(w.envelope(doc))
	if err != nil {
		return err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return w.Producer.Publish(ctx, topicFor(doc.Name, w.TopicPrefix), doc.Aggregate, payload, headers)
}

type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

func (w *Worker) envelope(doc *EventDocument) cloudEvent {
	source := w.Source
	if source == "" {
		source = "app://islandstay"
	}
	return cloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Type:            doc.Name + ".v1",
		Source:          source,
		Time:            doc.OccurredAt,
		DataContentType: "application/json",
		Data:            json.RawMessage(doc.Payload),
	}
}

// topicFor maps an event name to its topic by aggregate: everything
// before the first dot. "booking.created" lands on
// "<prefix>booking.events.v1".
func topicFor(name, prefix string) string {
	aggregate, _, found := strings.Cut(name, ".")
	if !found || aggregate == "" {
		aggregate = name
	}
	return prefix + aggregate + ".events.v1"
}

func (w *Worker) backoffFor(attempts int) time.Duration {
	switch {
	case len(w.Backoff) == 0:
		return 5 * time.Second
	case attempts >= len(w.Backoff):
		return w.Backoff[len(w.Backoff)-1]
	default:
		return w.Backoff[attempts]
	}
}

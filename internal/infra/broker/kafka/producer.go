// Package kafka adapts sarama's synchronous producer to the outbox
// worker's Producer port.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

// Producer publishes booking lifecycle events. Writes are synchronous
// and idempotent so a redelivered outbox record cannot duplicate a
// message on the broker side.
type Producer struct {
	sp sarama.SyncProducer
}

func NewProducer(brokers []string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "islandstay"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	// sarama rejects idempotent producers with more than one in-flight request.
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Return.Successes = true

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: connect %v: %w", brokers, err)
	}
	return &Producer{sp: sp}, nil
}

// Publish sends a single event. The key is the listing id so that all
// events for one listing land on the same partition in order.
func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}
	if _, _, err := p.sp.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka: publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.sp == nil {
		return nil
	}
	return p.sp.Close()
}

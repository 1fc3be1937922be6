package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const producerName = "retailpos-backend"

// topicFor routes an event type to its Kafka topic. Order and return events
// go to separate topics so inventory and finance consumers can subscribe
// independently.
func topicFor(eventType string) string {
	switch eventType {
	case EventOrderCommitted:
		return TopicOrders
	default:
		return TopicReturns
	}
}

// KafkaPublisher writes envelopes through an async kafka-go writer. Messages
// are buffered on an inbox channel and drained by a single goroutine so a
// slow broker never blocks a request handler. Publishing after Close drops
// the event with a warning instead of panicking on the closed inbox.
type KafkaPublisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(brokers []string, buf int) *KafkaPublisher {
	if buf < 1 {
		buf = 256
	}
	p := &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	for m := range p.inbox {
		if err := p.w.WriteMessages(context.Background(), m); err != nil {
			log.Printf("[events] WARN: publish to %s failed: %v", m.Topic, err)
		}
	}
	if err := p.w.Close(); err != nil {
		log.Printf("[events] WARN: writer close failed: %v", err)
	}
	close(p.closeCh)
}

func (p *KafkaPublisher) Publish(eventType string, correlationID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[events] WARN: marshal payload for %s: %v", eventType, err)
		return
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		log.Printf("[events] WARN: marshal envelope for %s: %v", eventType, err)
		return
	}

	msg := kafka.Message{
		Topic: topicFor(eventType),
		Key:   []byte(correlationID),
		Value: value,
		Time:  env.OccurredAt,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Printf("[events] WARN: publisher closed, dropping %s event for %s", eventType, correlationID)
		return
	}
	select {
	case p.inbox <- msg:
	default:
		log.Printf("[events] WARN: inbox full, dropping %s event for %s", eventType, correlationID)
	}
}

// Close flushes buffered messages and waits for the writer goroutine.
// Closing twice is a no-op.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.inbox)
	<-p.closeCh
}

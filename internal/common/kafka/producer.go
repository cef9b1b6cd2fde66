package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"loan-eligibility-workers/internal/common/config"
)

// Message is a single record to publish.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Writer is the subset of *kafkago.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer publishes domain events to per-topic writers created on demand.
type Producer struct {
	mu           sync.Mutex
	writers      map[string]Writer
	brokers      []string
	batchTimeout time.Duration
	newWriter    func(topic string) Writer
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writers:      make(map[string]Writer),
		brokers:      cfg.Brokers,
		batchTimeout: time.Duration(cfg.BatchTimeout) * time.Millisecond,
	}
	if p.batchTimeout <= 0 {
		p.batchTimeout = 10 * time.Millisecond
	}
	p.newWriter = p.tcpWriter
	return p
}

// NewProducerWithWriter routes every topic through w.
func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{
		writers:   make(map[string]Writer),
		newWriter: func(string) Writer { return w },
	}
}

func (p *Producer) Publish(ctx context.Context, topic string, messages ...Message) error {
	w := p.getOrCreateWriter(topic)

	kafkaMessages := make([]kafkago.Message, 0, len(messages))
	for _, msg := range messages {
		km := kafkago.Message{
			Key:   msg.Key,
			Value: msg.Value,
		}
		for k, v := range msg.Headers {
			km.Headers = append(km.Headers, kafkago.Header{
				Key:   k,
				Value: []byte(v),
			})
		}
		kafkaMessages = append(kafkaMessages, km)
	}

	if err := w.WriteMessages(ctx, kafkaMessages...); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	return nil
}

// PublishJSON marshals event and publishes it keyed by key. The event type
// travels in the "event-type" header.
func (p *Producer) PublishJSON(ctx context.Context, topic, key, eventType string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return p.Publish(ctx, topic, Message{
		Key:     []byte(key),
		Value:   value,
		Headers: map[string]string{"event-type": eventType},
	})
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing writer for topic %s: %w", topic, err)
		}
	}
	p.writers = make(map[string]Writer)
	return firstErr
}

func (p *Producer) getOrCreateWriter(topic string) Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	return w
}

func (p *Producer) tcpWriter(topic string) Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: p.batchTimeout,
		RequiredAcks: kafkago.RequireAll,
	}
}

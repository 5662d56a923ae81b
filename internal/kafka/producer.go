package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"gt-shop/internal/models"
)

// Producer streams order lifecycle events. With MockMode set, events are
// logged instead of written — used in tests and local dev without a broker.
type Producer struct {
	writers  map[string]*kafka.Writer
	topics   Topics
	MockMode bool
}

func NewProducer(brokers []string, topics Topics, mockMode bool) *Producer {
	p := &Producer{
		writers:  make(map[string]*kafka.Writer),
		topics:   topics.withDefaults(),
		MockMode: mockMode,
	}
	if mockMode {
		return p
	}
	for _, topic := range p.topics.all() {
		p.writers[topic] = kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   topic,
		})
	}
	return p
}

func (p *Producer) publish(topic string, order models.Order) error {
	if p.MockMode {
		log.Printf("KAFKA (mock): %s order=%s status=%s", topic, order.OrderID, order.Status)
		return nil
	}

	msgBytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return p.writers[topic].WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(order.OrderID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishOrderCreated(order models.Order) error {
	return p.publish(p.topics.OrderCreated, order)
}

func (p *Producer) PublishProofUploaded(order models.Order) error {
	return p.publish(p.topics.ProofUploaded, order)
}

func (p *Producer) PublishOrderAccepted(order models.Order) error {
	return p.publish(p.topics.OrderAccepted, order)
}

func (p *Producer) PublishOrderDeclined(order models.Order) error {
	return p.publish(p.topics.OrderDeclined, order)
}

func (p *Producer) Close() error {
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

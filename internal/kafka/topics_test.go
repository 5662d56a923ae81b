package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicsEmptyFieldsFallBackToDefaults(t *testing.T) {
	topics := Topics{}.withDefaults()

	assert.Equal(t, TopicOrderCreated, topics.OrderCreated)
	assert.Equal(t, TopicProofUploaded, topics.ProofUploaded)
	assert.Equal(t, TopicOrderAccepted, topics.OrderAccepted)
	assert.Equal(t, TopicOrderDeclined, topics.OrderDeclined)
}

func TestTopicsOverridesSurviveDefaults(t *testing.T) {
	topics := Topics{OrderCreated: "shop.order.created", OrderDeclined: "shop.order.declined"}.withDefaults()

	assert.Equal(t, "shop.order.created", topics.OrderCreated)
	assert.Equal(t, TopicProofUploaded, topics.ProofUploaded)
	assert.Equal(t, "shop.order.declined", topics.OrderDeclined)
	assert.Equal(t, []string{"shop.order.created", TopicProofUploaded, TopicOrderAccepted, "shop.order.declined"}, topics.all())
}

func TestProducerWritesToConfiguredTopics(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, Topics{OrderCreated: "shop.order.created"}, false)
	defer p.Close()

	assert.Contains(t, p.writers, "shop.order.created")
	assert.Contains(t, p.writers, TopicProofUploaded)
	assert.NotContains(t, p.writers, TopicOrderCreated)
}

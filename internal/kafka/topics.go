package kafka

// Default lifecycle event topics. One topic per transition so downstream
// consumers can subscribe selectively.
const (
	TopicOrderCreated  = "order-created"
	TopicProofUploaded = "order-proof-uploaded"
	TopicOrderAccepted = "order-accepted"
	TopicOrderDeclined = "order-declined"
)

// Topics maps each lifecycle event to its topic name. Empty fields fall
// back to the defaults above.
type Topics struct {
	OrderCreated  string
	ProofUploaded string
	OrderAccepted string
	OrderDeclined string
}

func (t Topics) withDefaults() Topics {
	if t.OrderCreated == "" {
		t.OrderCreated = TopicOrderCreated
	}
	if t.ProofUploaded == "" {
		t.ProofUploaded = TopicProofUploaded
	}
	if t.OrderAccepted == "" {
		t.OrderAccepted = TopicOrderAccepted
	}
	if t.OrderDeclined == "" {
		t.OrderDeclined = TopicOrderDeclined
	}
	return t
}

func (t Topics) all() []string {
	return []string{t.OrderCreated, t.ProofUploaded, t.OrderAccepted, t.OrderDeclined}
}

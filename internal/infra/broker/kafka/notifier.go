package kafka

import (
	"context"
	"encoding/json"
	"time"

	"staybook/internal/app/policies"
)

const DefaultNotificationTopic = "notifications.v1"

// Notifier hands templated messages to the delivery service over Kafka.
type Notifier struct {
	Producer *Producer
	Topic    string
	Clock    func() time.Time
}

type notification struct {
	To       string    `json:"to"`
	Template string    `json:"template"`
	Data     any       `json:"data"`
	SentAt   time.Time `json:"sent_at"`
}

func (n *Notifier) Send(ctx context.Context, to string, template string, data any) error {
	now := time.Now
	if n.Clock != nil {
		now = n.Clock
	}
	payload, err := json.Marshal(notification{To: to, Template: template, Data: data, SentAt: now().UTC()})
	if err != nil {
		return err
	}
	topic := n.Topic
	if topic == "" {
		topic = DefaultNotificationTopic
	}
	return n.Producer.Publish(ctx, topic, to, payload, map[string]string{"content-type": "application/json"})
}

var _ policies.Notifier = (*Notifier)(nil)

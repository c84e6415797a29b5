package outbox

import (
	"context"

	appoutbox "staybook/internal/app/outbox"
)

// LocalProducer delivers relayed events straight to in-process subscribers.
// It stands in for the broker when Kafka is not configured.
type LocalProducer struct {
	Dispatcher *appoutbox.Dispatcher
}

func (p LocalProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	rec, err := Unwrap(payload, headers)
	if err != nil {
		return err
	}
	return p.Dispatcher.Dispatch(ctx, rec)
}

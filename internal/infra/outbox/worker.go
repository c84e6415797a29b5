package outbox

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker relays committed outbox records to a Producer. Run polls; Flush
// drains whatever is due right away and is what the command bus calls after
// each commit.
type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger().ErrorContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// Flush relays due records until none are left. Publish failures are
// rescheduled with backoff and do not stop the drain.
func (w *Worker) Flush(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	for {
		batch, err := w.Store.Claim(ctx, w.workerID(), w.batchSize())
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, rec := range batch {
			if err := w.relay(ctx, rec); err != nil {
				return err
			}
		}
		if len(batch) < w.batchSize() {
			return nil
		}
	}
}

func (w *Worker) relay(ctx context.Context, rec Pending) error {
	// continue the trace of the command that staged the record
	recCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(rec.Headers))
	if sc := trace.SpanContextFromContext(recCtx); sc.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
	}
	payload, headers, err := Wrap(rec.EventRecord, w.source())
	if err != nil {
		return w.Store.MarkFailed(ctx, rec.ID, w.nextRetry(rec.Attempts), err.Error())
	}
	if err := w.Producer.Publish(ctx, w.topicFor(rec.Name), rec.Aggregate, payload, headers); err != nil {
		w.logger().WarnContext(ctx, "outbox publish failed", "event", rec.Name, "event_id", rec.ID, "attempts", rec.Attempts+1, "error", err)
		return w.Store.MarkFailed(ctx, rec.ID, w.nextRetry(rec.Attempts), err.Error())
	}
	return w.Store.MarkSent(ctx, rec.ID)
}

// TopicFor maps an event name to its topic: "booking.cancelled" goes to
// "<prefix>booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

func (w *Worker) topicFor(name string) string {
	return TopicFor(w.TopicPrefix, name)
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return "relay"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 50
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://staybook"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

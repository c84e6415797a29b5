package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	appoutbox "staybook/internal/app/outbox"
)

const (
	specVersion        = "1.0"
	typeSuffix         = ".v1"
	contentTypeHeader  = "content-type"
	cloudEventsContent = "application/cloudevents+json"
)

var ErrMalformedEnvelope = errors.New("outbox: malformed cloud event")

// Envelope is the structured-mode CloudEvent written to the broker.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

// Wrap builds the envelope of rec. The record id doubles as the event id so
// consumers can de-duplicate redeliveries.
func Wrap(rec appoutbox.EventRecord, source string) ([]byte, map[string]string, error) {
	if !json.Valid(rec.Payload) {
		return nil, nil, ErrMalformedEnvelope
	}
	env := Envelope{
		SpecVersion:     specVersion,
		ID:              rec.ID,
		Type:            rec.Name + typeSuffix,
		Source:          source,
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt.UTC(),
		DataContentType: "application/json",
		TraceParent:     rec.Headers["traceparent"],
		Data:            rec.Payload,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{contentTypeHeader: cloudEventsContent}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// Unwrap turns a delivered envelope back into the record it was built from.
func Unwrap(payload []byte, headers map[string]string) (appoutbox.EventRecord, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return appoutbox.EventRecord{}, err
	}
	if env.ID == "" || !strings.HasSuffix(env.Type, typeSuffix) {
		return appoutbox.EventRecord{}, ErrMalformedEnvelope
	}
	hs := make(map[string]string, len(headers))
	for k, v := range headers {
		if k == contentTypeHeader {
			continue
		}
		hs[k] = v
	}
	if env.TraceParent != "" {
		hs["traceparent"] = env.TraceParent
	}
	return appoutbox.EventRecord{
		ID:         env.ID,
		Name:       strings.TrimSuffix(env.Type, typeSuffix),
		Payload:    env.Data,
		OccurredAt: env.Time,
		Aggregate:  env.Subject,
		Headers:    hs,
	}, nil
}

package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"staybook/internal/app/middleware"
)

func TestIdempotencyDocumentRoundTrip(t *testing.T) {
	rec := middleware.IdempotencyRecord{
		Key:        "req-1",
		Command:    "booking.cancel",
		Error:      "booking: already cancelled",
		ErrorKind:  "conflict",
		OccurredAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	doc := newIdempotencyDocument(rec, time.Date(2026, 5, 1, 8, 0, 1, 0, time.UTC))
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var decoded idempotencyDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, "req-1", decoded.ID)
	assert.Equal(t, rec, decoded.toRecord())
}

package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/queries"
)

type nightsQuery struct{ From, To int }

func (nightsQuery) Key() string { return "test.nights" }

type unknownQuery struct{}

func (unknownQuery) Key() string { return "test.unknown" }

func TestAskReturnsTypedResult(t *testing.T) {
	bus := queries.NewInMemoryBus()
	queries.RegisterHandler(bus, nightsQuery{}.Key(), queries.HandlerFunc[nightsQuery, int](
		func(_ context.Context, q nightsQuery) (int, error) { return q.To - q.From, nil },
	))

	n, err := queries.Ask[nightsQuery, int](context.Background(), bus, nightsQuery{From: 3, To: 7})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = queries.Ask[unknownQuery, int](context.Background(), bus, unknownQuery{})
	assert.ErrorIs(t, err, queries.ErrHandlerNotFound)

	_, err = queries.Ask[nightsQuery, string](context.Background(), bus, nightsQuery{})
	assert.ErrorIs(t, err, queries.ErrResultType)
}

package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/domain/shared/apperr"
)

type renameCommand struct{ Name string }

func (renameCommand) Key() string { return "test.rename" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchRoutesByKey(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, renameCommand{}.Key(), commands.HandlerFunc[renameCommand, string](
		func(_ context.Context, cmd renameCommand) (string, error) { return "renamed " + cmd.Name, nil },
	))

	got, err := commands.Dispatch[renameCommand, string](context.Background(), bus, renameCommand{Name: "cabin"})
	require.NoError(t, err)
	assert.Equal(t, "renamed cabin", got)
	assert.Equal(t, []string{"test.rename"}, bus.Keys())
}

func TestDispatchErrors(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, renameCommand{}.Key(), commands.HandlerFunc[renameCommand, string](
		func(context.Context, renameCommand) (string, error) { return "ok", nil },
	))

	_, err := commands.Dispatch[otherCommand, string](context.Background(), bus, otherCommand{})
	require.ErrorIs(t, err, commands.ErrHandlerNotFound)
	assert.Equal(t, apperr.KindUnsupported, apperr.KindOf(err))

	_, err = commands.Dispatch[renameCommand, int](context.Background(), bus, renameCommand{})
	assert.ErrorIs(t, err, commands.ErrResultType)

	_, err = commands.Dispatch[renameCommand, string](context.Background(), nil, renameCommand{})
	assert.ErrorIs(t, err, commands.ErrNilBus)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := commands.NewInMemoryBus()
	h := commands.HandlerFunc[renameCommand, string](func(context.Context, renameCommand) (string, error) { return "", nil })
	commands.RegisterHandler(bus, "test.rename", h)
	assert.Panics(t, func() { commands.RegisterHandler(bus, "test.rename", h) })
	assert.Panics(t, func() { commands.RegisterHandler(bus, "", h) })
}

// Package engine assembles the command and query buses of the availability
// and pricing engine, their middleware and the in-process event subscribers.
package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"staybook/internal/app/commands"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	calendarapp "staybook/internal/app/handlers/calendar"
	listingapp "staybook/internal/app/handlers/listings"
	pricingapp "staybook/internal/app/handlers/pricing"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	"staybook/internal/domain/pricing"
)

type Deps struct {
	UoWFactory  uow.UoWFactory
	Idempotency middleware.IdempotencyStore
	// Flusher relays committed events after every command. Optional.
	Flusher    outbox.Flusher
	Dispatcher *outbox.Dispatcher
	Cache      policies.AvailabilityCache
	Notifier   policies.Notifier
	// Archive receives calendar exports. Optional; exports are unsupported without it.
	Archive    policies.CalendarArchive
	Signals    pricing.SignalSource
	Encoder    outbox.EventEncoder
	Tracer     trace.Tracer
	Clock      handlersupport.Clock
	Logger     *slog.Logger
}

type Engine struct {
	Commands   commands.Bus
	Queries    queries.Bus
	Dispatcher *outbox.Dispatcher
}

func New(d Deps) *Engine {
	if d.UoWFactory == nil {
		panic("engine: uow factory required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = otel.Tracer("staybook/app")
	}
	encoder := d.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	dispatcher := d.Dispatcher
	if dispatcher == nil {
		dispatcher = outbox.NewDispatcher()
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, listingapp.CreateHostListingCommand{}.Key(), &listingapp.CreateHostListingHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, listingapp.PublishHostListingCommand{}.Key(), &listingapp.PublishHostListingHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, listingapp.SuspendHostListingCommand{}.Key(), &listingapp.SuspendHostListingHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.ReplaceCalendarRangeCommand{}.Key(), &calendarapp.ReplaceCalendarRangeHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, calendarapp.SeedCalendarCommand{}.Key(), &calendarapp.SeedCalendarHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, pricingapp.SavePriceRuleCommand{}.Key(), &pricingapp.SavePriceRuleHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		Encoder: encoder, Signals: d.Signals, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.ConfirmHostBookingCommand{}.Key(), &bookingapp.ConfirmHostBookingHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CompleteBookingCommand{}.Key(), &bookingapp.CompleteBookingHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.ExpireBookingCommand{}.Key(), &bookingapp.ExpireBookingHandler{
		Encoder: encoder, Clock: d.Clock, Logger: logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{
		UoWFactory: d.UoWFactory,
	})
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{
		UoWFactory: d.UoWFactory,
	})
	queries.RegisterHandler(queryBus, availabilityapp.ComputeAvailabilityQuery{}.Key(), &availabilityapp.ComputeAvailabilityHandler{
		UoWFactory: d.UoWFactory, Cache: d.Cache, Signals: d.Signals, Clock: d.Clock, Logger: logger,
	})
	queries.RegisterHandler(queryBus, calendarapp.ExportCalendarQuery{}.Key(), &calendarapp.ExportCalendarHandler{
		UoWFactory: d.UoWFactory, Archive: d.Archive, Clock: d.Clock, Logger: logger,
	})
	queries.RegisterHandler(queryBus, pricingapp.ApplyPriceRulesQuery{}.Key(), &pricingapp.ApplyPriceRulesHandler{
		UoWFactory: d.UoWFactory, Signals: d.Signals, Clock: d.Clock,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{
		UoWFactory: d.UoWFactory,
	})

	validator := middleware.NewStructValidator()
	var idempotency, flush middleware.CommandMiddleware
	if d.Idempotency != nil {
		idempotency = middleware.Idempotency(d.Idempotency, nil)
	}
	if d.Flusher != nil {
		flush = middleware.OutboxFlush(d.Flusher, logger)
	}
	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Tracing(tracer),
		middleware.Validation(validator),
		idempotency,
		flush,
		middleware.Transaction(d.UoWFactory, nil, logger),
	)
	queriesWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryTracing(tracer),
		middleware.QueryValidation(validator),
	)

	(&calendarapp.ListingPublishedSubscriber{Bus: commandsWithMiddleware, Logger: logger}).Subscribe(dispatcher)
	if d.Notifier != nil {
		(&bookingapp.CancellationNotifier{Notifier: d.Notifier, Logger: logger}).Subscribe(dispatcher)
	}
	if d.Cache != nil {
		(&availabilityapp.CacheInvalidator{Cache: d.Cache, Logger: logger}).Subscribe(dispatcher)
	}

	return &Engine{
		Commands:   commandsWithMiddleware,
		Queries:    queriesWithMiddleware,
		Dispatcher: dispatcher,
	}
}

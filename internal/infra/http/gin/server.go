package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
)

type ListingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Publish(c *gin.Context)
	Suspend(c *gin.Context)
	SeedCalendar(c *gin.Context)
}

type AvailabilityHTTP interface {
	Availability(c *gin.Context)
	Calendar(c *gin.Context)
	ReplaceCalendar(c *gin.Context)
	Export(c *gin.Context)
}

type PricingHTTP interface {
	Quote(c *gin.Context)
	SaveRule(c *gin.Context)
}

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
	Expire(c *gin.Context)
}

type Handlers struct {
	Listing      ListingHTTP
	Availability AvailabilityHTTP
	Pricing      PricingHTTP
	Booking      BookingHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.Tracing())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Listing != nil {
		api.GET("/listings/:id", h.Listing.Get)
		hostGroup := api.Group("/host/listings")
		hostGroup.POST("", h.Listing.Create)
		hostGroup.POST("/:id/publish", h.Listing.Publish)
		hostGroup.POST("/:id/suspend", h.Listing.Suspend)
		hostGroup.POST("/:id/calendar/seed", h.Listing.SeedCalendar)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/availability", h.Availability.Availability)
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.PUT("/listings/:id/calendar", h.Availability.ReplaceCalendar)
		api.POST("/host/listings/:id/calendar/export", h.Availability.Export)
	}
	if h.Pricing != nil {
		api.GET("/listings/:id/price", h.Pricing.Quote)
		api.POST("/host/listings/:id/price-rules", h.Pricing.SaveRule)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/bookings/:id/complete", h.Booking.Complete)
		api.POST("/bookings/:id/expire", h.Booking.Expire)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", userIDHeader, "Idempotency-Key", "X-Request-ID", "traceparent"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

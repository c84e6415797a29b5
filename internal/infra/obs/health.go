package obs

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Readiness runs named dependency checks. It backs both the HTTP /readyz
// endpoint and the gRPC health service.
type Readiness struct {
	Checks  map[string]Check
	Timeout time.Duration
}

// Failures returns the error of every failing check keyed by name.
func (r Readiness) Failures(ctx context.Context) map[string]string {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := map[string]string{}
	for name, check := range r.Checks {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			out[name] = err.Error()
		}
	}
	return out
}

func (r Readiness) Ready(ctx context.Context) error {
	failures := r.Failures(ctx)
	if len(failures) == 0 {
		return nil
	}
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, errors.New(name+": "+failures[name]))
	}
	return errors.Join(errs...)
}

// HealthHandlers exposes endpoints for liveness and readiness checks.
type HealthHandlers struct {
	Readiness Readiness
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	if failures := h.Readiness.Failures(c.Request.Context()); len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

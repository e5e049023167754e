package resource

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Config holds write-side limits.
type Config struct {
	// PublishesPerSec is the sustained publish rate.
	// If 0, publishing is not rate limited.
	PublishesPerSec float64

	// PublishBurst is the number of publishes allowed back to back.
	// If 0, defaults to 1.
	PublishBurst int

	// MaxPendingOps is the log length at which the writer publishes
	// on its own. If 0, the writer never publishes on its own.
	MaxPendingOps int
}

// Controller applies a Config.
type Controller struct {
	cfg Config

	limiter *rate.Limiter // nil if unlimited

	throttled atomic.Int64
}

// NewController creates a new controller.
func NewController(cfg Config) *Controller {
	if cfg.PublishBurst <= 0 {
		cfg.PublishBurst = 1
	}
	if cfg.MaxPendingOps < 0 {
		cfg.MaxPendingOps = 0
	}

	c := &Controller{cfg: cfg}

	if cfg.PublishesPerSec > 0 && !math.IsInf(cfg.PublishesPerSec, 1) {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.PublishesPerSec), cfg.PublishBurst)
	}

	return c
}

// AllowPublish reports whether a publish may happen now and, if so,
// consumes a token. Non-blocking.
func (c *Controller) AllowPublish() bool {
	if c == nil || c.limiter == nil {
		return true
	}
	if c.limiter.Allow() {
		return true
	}
	c.throttled.Add(1)
	return false
}

// WaitPublish blocks until a publish may happen or ctx is done.
func (c *Controller) WaitPublish(ctx context.Context) error {
	if c == nil || c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}

// ShouldPublish reports whether pending logged operations reached the
// configured threshold.
func (c *Controller) ShouldPublish(pending int) bool {
	if c == nil || c.cfg.MaxPendingOps == 0 {
		return false
	}
	return pending >= c.cfg.MaxPendingOps
}

// Throttled returns how many publishes AllowPublish has refused.
func (c *Controller) Throttled() int64 {
	if c == nil {
		return 0
	}
	return c.throttled.Load()
}

// Limited reports whether a publish rate limit is configured.
func (c *Controller) Limited() bool {
	return c != nil && c.limiter != nil
}

// MaxPendingOps returns the configured pending threshold (0 if none).
func (c *Controller) MaxPendingOps() int {
	if c == nil {
		return 0
	}
	return c.cfg.MaxPendingOps
}

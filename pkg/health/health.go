// Package health serves liveness and readiness probes.
//
// Every check runs in its own goroutine. A check flips to unhealthy after
// FailureThreshold consecutive failures and back after SuccessThreshold
// consecutive passes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type kind string

const (
	kindLiveness  kind = "liveness"
	kindReadiness kind = "readiness"
)

// Thresholds applied to checks registered after they are set.
const (
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 1
)

type check struct {
	name     string
	kind     kind
	timeout  time.Duration
	fn       CheckFunc
	failures int
	passes   int

	// Owned by the check goroutine.
	failStreak int
	okStreak   int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
}

func (c *check) err() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once. Not safe for concurrent use.
func (c *check) run(ctx context.Context, lg *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.okStreak = 0
		c.failStreak++
		if c.failStreak >= c.failures && c.healthy.Swap(false) {
			lg.Warn("Health check failing",
				zap.String("check", c.name),
				zap.String("kind", string(c.kind)),
				zap.Error(err),
			)
		}
		return
	}
	c.failStreak = 0
	c.okStreak++
	if c.okStreak >= c.passes && !c.healthy.Swap(true) {
		lg.Info("Health check recovered",
			zap.String("check", c.name),
			zap.String("kind", string(c.kind)),
		)
	}
}

// Option configures a Health.
type Option func(*Health)

// WithLogger logs check state transitions.
func WithLogger(lg *zap.Logger) Option {
	return func(h *Health) { h.lg = lg.Named("health") }
}

// WithThresholds overrides the default failure and success thresholds.
func WithThresholds(failures, passes int) Option {
	return func(h *Health) {
		h.failures = max(failures, 1)
		h.passes = max(passes, 1)
	}
}

// Health tracks probe checks and a manual readiness flag.
type Health struct {
	lg       *zap.Logger
	failures int
	passes   int
	ready    atomic.Bool

	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
}

// New creates a Health that starts not ready.
func New(opts ...Option) *Health {
	h := &Health{
		lg:       zap.NewNop(),
		failures: DefaultFailureThreshold,
		passes:   DefaultSuccessThreshold,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// AddLivenessCheck registers a check reported by LiveEndpoint.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, kindLiveness, timeout, fn)
}

// AddReadinessCheck registers a check reported by ReadyEndpoint.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, kindReadiness, timeout, fn)
}

func (h *Health) add(name string, k kind, timeout time.Duration, fn CheckFunc) {
	c := &check{
		name:     name,
		kind:     k,
		timeout:  timeout,
		fn:       fn,
		failures: h.failures,
		passes:   h.passes,
	}
	c.healthy.Store(true)

	h.mu.Lock()
	h.checks = append(h.checks, c)
	h.mu.Unlock()
}

// Start runs every registered check now and then every interval until Stop
// or ctx cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := append([]*check(nil), h.checks...)
	h.mu.Unlock()

	for _, c := range checks {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				c.run(ctx, h.lg)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
}

// Stop cancels the check goroutines. It is idempotent.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the manual flag combined with all readiness checks.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failing(kindReadiness)) == 0
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failing(kindLiveness))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failing(kindReadiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// failing maps the names of unhealthy checks of kind k to their last error.
func (h *Health) failing(k kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	failures := make(map[string]string)
	for _, c := range h.checks {
		if c.kind != k || c.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if err := c.err(); err != nil {
			msg = err.Error()
		}
		failures[c.name] = msg
	}
	return failures
}

// writeStatus writes {"status":"ok"} or 503 with the failing checks.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	status := http.StatusOK
	e.Obj(func(e *jx.Encoder) {
		if len(failures) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		status = http.StatusServiceUnavailable
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failures[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// Package repo wraps the Neo4j driver behind a retrying, rate-limited,
// circuit-broken query executor. All reads in the engine go through
// Executor.Query; callers see rows as record.Record and failures classified
// into the transient/fatal upstream taxonomy.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"

	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/engine/record"
	"github.com/storygraph/storygraph/pkg/resilience"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Executor runs read queries with a fixed retry budget. Transient failures
// (connectivity, leader switches, expired sessions) are retried with linear
// backoff; the driver re-establishes connections between attempts. Anything
// else fails immediately.
type Executor struct {
	driver   neo4j.DriverWithContext
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	log      *slog.Logger
	attempts int
	backoff  time.Duration

	retries interface{ Inc() }

	newSession func(ctx context.Context) runner          // for testing
	sleep      func(ctx context.Context, d time.Duration) error // for testing
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// WithRate throttles queries to r per second with the given burst.
func WithRate(r rate.Limit, burst int) Option {
	return func(e *Executor) { e.limiter = rate.NewLimiter(r, burst) }
}

// WithBreaker sets the circuit breaker guarding the store.
func WithBreaker(b *resilience.Breaker) Option {
	return func(e *Executor) { e.breaker = b }
}

// WithRetryCounter sets a counter incremented once per retried attempt.
// prometheus.Counter satisfies it.
func WithRetryCounter(c interface{ Inc() }) Option {
	return func(e *Executor) { e.retries = c }
}

// WithAttempts sets the retry budget (total attempts, not extra retries).
func WithAttempts(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.attempts = n
		}
	}
}

// NewExecutor creates an Executor over an open driver.
func NewExecutor(driver neo4j.DriverWithContext, opts ...Option) *Executor {
	e := &Executor{
		driver:   driver,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		log:      slog.Default(),
		attempts: 3,
		backoff:  time.Second,
		sleep:    sleepCtx,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (e *Executor) session(ctx context.Context) runner {
	if e.newSession != nil {
		return e.newSession(ctx)
	}
	return &neo4jSessionAdapter{sess: e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode: neo4j.AccessModeRead,
	})}
}

// Query runs one read query and collects all rows. Retries only transient
// failures, waiting backoff*attempt between tries. The returned error wraps
// domain.ErrUpstreamTransient when the store stayed unreachable through the
// whole budget and domain.ErrUpstreamFatal for everything else.
func (e *Executor) Query(ctx context.Context, cypher string, params map[string]any) ([]record.Record, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		var rows []record.Record
		err := e.breaker.Call(ctx, func(ctx context.Context) error {
			var runErr error
			rows, runErr = e.runOnce(ctx, cypher, params)
			return runErr
		})
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if !transient(err) {
			return nil, fmt.Errorf("query failed: %w: %w", domain.ErrUpstreamFatal, err)
		}
		if attempt < e.attempts {
			wait := e.backoff * time.Duration(attempt)
			e.log.Warn("transient store error, retrying",
				"attempt", attempt, "budget", e.attempts, "wait", wait, "error", err)
			if e.retries != nil {
				e.retries.Inc()
			}
			if serr := e.sleep(ctx, wait); serr != nil {
				return nil, serr
			}
			// Nudge the pool back to life before the next attempt; failure
			// here just means the retry will hit the same transient error.
			if e.driver != nil {
				if perr := e.driver.VerifyConnectivity(ctx); perr != nil {
					e.log.Warn("reconnect check failed", "error", perr)
				}
			}
		}
	}
	return nil, fmt.Errorf("query failed after %d attempts: %w: %w",
		e.attempts, domain.ErrUpstreamTransient, lastErr)
}

func (e *Executor) runOnce(ctx context.Context, cypher string, params map[string]any) ([]record.Record, error) {
	sess := e.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	var rows []record.Record
	for res.Next(ctx) {
		rec := res.Record()
		rows = append(rows, record.NewRecord(rec.Keys, rec.Values))
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// transient reports whether an error is worth retrying: driver connectivity
// and transient-cluster errors, plus a tripped breaker (the store may recover
// within the backoff window).
func transient(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return true
	}
	return neo4j.IsConnectivityError(err) || neo4j.IsRetryable(err)
}

// Ping verifies store connectivity, for startup checks and health probes.
func (e *Executor) Ping(ctx context.Context) error {
	if e.driver == nil {
		return nil
	}
	return e.driver.VerifyConnectivity(ctx)
}

// Close releases the underlying driver.
func (e *Executor) Close(ctx context.Context) error {
	if e.driver == nil {
		return nil
	}
	return e.driver.Close(ctx)
}

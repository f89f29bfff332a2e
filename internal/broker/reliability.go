package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

// ErrCircuitOpen marks order submission refused while the breaker cools down.
var ErrCircuitOpen = errors.New("broker: order circuit open")

// ReliabilityParams tunes the wrapper around a raw provider.
type ReliabilityParams struct {
	CallTimeout time.Duration // per-call deadline
	RateLimit   rate.Limit    // outbound calls per second
	MaxRetries  int           // transport retries per submission
	Backoff     time.Duration // initial retry backoff
	BreakAfter  int           // consecutive failed submissions before opening
	Cooldown    time.Duration // how long the breaker stays open
}

func (p *ReliabilityParams) applyDefaults() {
	if p.CallTimeout <= 0 {
		p.CallTimeout = 5 * time.Second
	}
	if p.RateLimit <= 0 {
		p.RateLimit = 10
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = 500 * time.Millisecond
	}
	if p.BreakAfter <= 0 {
		p.BreakAfter = 3
	}
	if p.Cooldown <= 0 {
		p.Cooldown = time.Minute
	}
}

// Reliable decorates a Client with per-call deadlines, a rate limiter on
// outbound calls, retry-with-backoff on order transport failures, and a
// consecutive-failure circuit breaker. While the breaker is open, order
// submission short-circuits with ErrCircuitOpen; tick fetches continue so
// the window and logs stay live.
type Reliable struct {
	inner   Client
	limiter *rate.Limiter
	params  ReliabilityParams
	log     zerolog.Logger

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewReliable wraps inner with the given parameters.
func NewReliable(inner Client, params ReliabilityParams, log zerolog.Logger) *Reliable {
	params.applyDefaults()
	return &Reliable{
		inner:   inner,
		limiter: rate.NewLimiter(params.RateLimit, 1),
		params:  params,
		log:     log,
	}
}

// FetchTicks forwards to the provider under the rate limit and deadline.
// Failures never trip the breaker; the caller degrades to an empty cycle.
func (r *Reliable) FetchTicks(ctx context.Context, symbol string, since time.Time, max int) ([]signal.Tick, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, r.params.CallTimeout)
	defer cancel()
	return r.inner.FetchTicks(callCtx, symbol, since, max)
}

// SubmitOrder retries transport failures with backoff. A venue-rejected
// result is returned as-is without retry; only transport errors count
// toward opening the breaker.
func (r *Reliable) SubmitOrder(ctx context.Context, order execution.OrderRequest) (*execution.Result, error) {
	if r.circuitOpen() {
		return nil, ErrCircuitOpen
	}

	backoff := r.params.Backoff
	var lastErr error
	for attempt := 0; attempt <= r.params.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				r.recordFailure()
				return nil, ctx.Err()
			}
			backoff *= 2
		}
		if err := r.limiter.Wait(ctx); err != nil {
			r.recordFailure()
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, r.params.CallTimeout)
		result, err := r.inner.SubmitOrder(callCtx, order)
		cancel()
		if err == nil {
			r.reset()
			return result, nil
		}
		lastErr = err
		r.log.Warn().Err(err).Int("attempt", attempt+1).Msg("order submission transport failure")
	}
	r.recordFailure()
	return nil, lastErr
}

// SymbolConstraints forwards under the rate limit and deadline.
func (r *Reliable) SymbolConstraints(ctx context.Context, symbol string) (Constraints, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Constraints{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, r.params.CallTimeout)
	defer cancel()
	return r.inner.SymbolConstraints(callCtx, symbol)
}

// Close forwards to the provider.
func (r *Reliable) Close() error { return r.inner.Close() }

func (r *Reliable) circuitOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Now().Before(r.openUntil)
}

func (r *Reliable) recordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	if r.failures >= r.params.BreakAfter {
		r.openUntil = time.Now().Add(r.params.Cooldown)
		r.failures = 0
		r.log.Warn().Dur("cooldown", r.params.Cooldown).Msg("order circuit opened")
	}
}

func (r *Reliable) reset() {
	r.mu.Lock()
	r.failures = 0
	r.mu.Unlock()
}

// Package scheduler drives the fixed-cadence fetch, evaluate, submit loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/broker"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/csvlog"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/metrics"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/risk"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/stop"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/strategy"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/window"
)

// Config fixes the loop parameters for the life of the process.
type Config struct {
	Symbol     string
	Volume     float64
	BatchSize  int
	Lookback   time.Duration
	Interval   time.Duration
	Iterations int
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.Lookback <= 0 {
		c.Lookback = 2 * time.Minute
	}
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Iterations <= 0 {
		c.Iterations = 100
	}
	if c.Volume <= 0 {
		c.Volume = 0.01
	}
}

// Deps bundles the collaborators the loop drives.
type Deps struct {
	Broker    broker.Client
	Estimator *strategy.Estimator
	Sizer     stop.Sizer
	Builder   *execution.Builder
	Limits    risk.Limits
	Ticks     *csvlog.TickLog
	Decisions *csvlog.DecisionLog
	Orders    *csvlog.OrderLog
	Log       zerolog.Logger
}

// Scheduler owns all mutable loop state: the rolling window, the tick
// high-water mark, the previous slope, and the order sequence counter.
// Each instance is independent, so multiple symbols can run side by side.
type Scheduler struct {
	cfg  Config
	deps Deps

	window    *window.Window
	highWater time.Time
	prevSlope float64
	orderSeq  int
}

// New builds a scheduler around its collaborators.
func New(cfg Config, deps Deps) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		cfg:    cfg,
		deps:   deps,
		window: window.New(deps.Estimator.Size()),
	}
}

// Run executes the iteration budget, sleeping the configured interval
// between iterations. It returns early only on context cancellation; all
// per-iteration failures are handled locally.
func (s *Scheduler) Run(ctx context.Context) error {
	s.highWater = time.Now().Add(-s.cfg.Lookback)
	s.deps.Log.Info().
		Str("sym", s.cfg.Symbol).
		Int("iterations", s.cfg.Iterations).
		Dur("interval", s.cfg.Interval).
		Time("since", s.highWater).
		Msg("polling loop started")

	for i := 1; i <= s.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.iterate(ctx, i)

		if i == s.cfg.Iterations {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Interval):
		}
	}
	s.deps.Log.Info().Int("iterations", s.cfg.Iterations).Msg("iteration budget exhausted")
	return nil
}

func (s *Scheduler) iterate(ctx context.Context, iteration int) {
	s.ingest(ctx)
	s.evaluate(ctx, iteration)
}

// ingest fetches all ticks past the high-water mark and pushes them through
// the window and the raw tick log. A fetch failure degrades to an empty
// cycle.
func (s *Scheduler) ingest(ctx context.Context) {
	ticks, err := s.deps.Broker.FetchTicks(ctx, s.cfg.Symbol, s.highWater, s.cfg.BatchSize)
	if err != nil {
		s.deps.Log.Warn().Err(err).Msg("tick fetch failed, treating as empty cycle")
		return
	}
	if len(ticks) == 0 {
		s.deps.Log.Debug().Time("since", s.highWater).Msg("no new ticks")
		return
	}

	s.deps.Log.Info().Int("count", len(ticks)).Time("since", s.highWater).Msg("fetched new ticks")
	for _, tk := range ticks {
		if !tk.Ts.Before(s.highWater) {
			s.highWater = tk.Ts.Add(time.Microsecond)
		}
		s.window.Push(tk.Price)
		metrics.TicksTotal.WithLabelValues(s.cfg.Symbol).Inc()
		if err := s.deps.Ticks.Append(tk); err != nil {
			s.deps.Log.Warn().Err(err).Msg("tick log append failed")
		}
	}
}

// evaluate runs the decision path once per iteration. Decisions are
// cadence-gated: a full window is evaluated even when no new ticks arrived.
func (s *Scheduler) evaluate(ctx context.Context, iteration int) {
	now := time.Now()

	if !s.window.Full() {
		s.deps.Log.Info().
			Int("have", s.window.Len()).
			Int("want", s.window.Cap()).
			Msg("window not full, skipping order attempt")
		if err := s.deps.Decisions.AppendPending(now, s.cfg.Symbol, s.window.Len(), s.window.Cap()); err != nil {
			s.deps.Log.Warn().Err(err).Msg("decision log append failed")
		}
		return
	}

	prices := s.window.Snapshot()
	snap, err := s.deps.Estimator.Evaluate(prices)
	if err != nil {
		s.deps.Log.Error().Err(err).Msg("estimator rejected window")
		return
	}

	metrics.DecisionsTotal.WithLabelValues(s.cfg.Symbol, string(snap.Trend)).Inc()
	metrics.WindowSlope.WithLabelValues(s.cfg.Symbol).Set(snap.Slope)
	metrics.WindowVariance.WithLabelValues(s.cfg.Symbol).Set(snap.Variance)
	if err := s.deps.Decisions.AppendSnapshot(now, s.cfg.Symbol, prices, snap); err != nil {
		s.deps.Log.Warn().Err(err).Msg("decision log append failed")
	}

	// Retained for observability only; the decision never consults it.
	s.deps.Log.Debug().Float64("prev_slope", s.prevSlope).Float64("slope", snap.Slope).Msg("slope updated")
	s.prevSlope = snap.Slope

	intent := strategy.Decide(snap)
	s.deps.Log.Info().
		Int("attempt", iteration).
		Float64("variance", snap.Variance).
		Float64("slope", snap.Slope).
		Str("trend", string(snap.Trend)).
		Str("intent", intent.String()).
		Msg("window evaluated")
	if intent == signal.None {
		return
	}

	s.submit(ctx, intent, snap, prices[len(prices)-1])
}

func (s *Scheduler) submit(ctx context.Context, intent signal.Intent, snap signal.TrendSnapshot, entry float64) {
	distance := s.deps.Sizer.Size(snap)
	if err := stop.Validate(distance); err != nil {
		s.deps.Log.Warn().Err(err).Str("policy", s.deps.Sizer.Name()).Msg("skipping order with invalid stop distance")
		return
	}
	if !s.deps.Limits.Allow(s.cfg.Volume) {
		s.deps.Log.Warn().Float64("volume", s.cfg.Volume).Msg("order volume exceeds risk limit")
		return
	}

	order, err := s.deps.Builder.Build(intent, entry, distance)
	if err != nil {
		s.deps.Log.Error().Err(err).Msg("order construction failed")
		return
	}

	s.orderSeq++
	result, err := s.deps.Broker.SubmitOrder(ctx, order)
	switch {
	case errors.Is(err, broker.ErrCircuitOpen):
		s.deps.Log.Warn().Msg("order skipped, submission circuit open")
		metrics.OrderFailuresTotal.WithLabelValues(s.cfg.Symbol).Inc()
	case err != nil:
		s.deps.Log.Warn().Err(err).Str("side", string(order.Side)).Msg("order submission failed")
		metrics.OrderFailuresTotal.WithLabelValues(s.cfg.Symbol).Inc()
	case !result.OK():
		event := s.deps.Log.Warn().Str("side", string(order.Side))
		if result != nil {
			event = event.Int("retcode", result.Retcode).Str("comment", result.Comment)
		}
		event.Msg("order rejected by venue")
		metrics.OrderFailuresTotal.WithLabelValues(s.cfg.Symbol).Inc()
	default:
		s.deps.Log.Info().
			Str("side", string(order.Side)).
			Int64("ticket", result.Ticket).
			Int64("deal", result.Deal).
			Float64("px", entry).
			Float64("stop", distance).
			Msg("order placed")
		metrics.OrdersTotal.WithLabelValues(s.cfg.Symbol, string(order.Side)).Inc()
		comment := fmt.Sprintf("Slope=%.4f, stop=%.4f", snap.Slope, distance)
		if err := s.deps.Orders.Append(result.Ticket, s.orderSeq, time.Now(), s.cfg.Symbol, order.Side, order.Volume, entry, result.Profit, comment); err != nil {
			s.deps.Log.Warn().Err(err).Msg("order log append failed")
		}
	}
}

// PreviousSlope exposes the retained slope from the last evaluation.
func (s *Scheduler) PreviousSlope() float64 { return s.prevSlope }

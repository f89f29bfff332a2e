package scheduler

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/broker"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/csvlog"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/risk"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/stop"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/strategy"
)

// scriptedBroker serves one prepared tick batch per fetch call and records
// submissions.
type scriptedBroker struct {
	batches    [][]signal.Tick
	fetchErr   error
	fetchCalls int
	sinceSeen  []time.Time
	submitted  []execution.OrderRequest
	result     *execution.Result
	submitErr  error
}

func (b *scriptedBroker) FetchTicks(_ context.Context, _ string, since time.Time, _ int) ([]signal.Tick, error) {
	b.fetchCalls++
	b.sinceSeen = append(b.sinceSeen, since)
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	if len(b.batches) == 0 {
		return nil, nil
	}
	batch := b.batches[0]
	b.batches = b.batches[1:]
	return batch, nil
}

func (b *scriptedBroker) SubmitOrder(_ context.Context, req execution.OrderRequest) (*execution.Result, error) {
	b.submitted = append(b.submitted, req)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	if b.result != nil {
		return b.result, nil
	}
	return &execution.Result{Retcode: execution.RetcodeDone, Ticket: int64(len(b.submitted))}, nil
}

func (b *scriptedBroker) SymbolConstraints(context.Context, string) (broker.Constraints, error) {
	return broker.Constraints{StopsLevel: 50, Point: 0.00001}, nil
}

func (b *scriptedBroker) Close() error { return nil }

func steppedTicks(n int, start, step float64, base time.Time) []signal.Tick {
	out := make([]signal.Tick, n)
	for i := range out {
		out[i] = signal.Tick{
			Symbol: "BTCUSD",
			Price:  start + float64(i)*step,
			Ts:     base.Add(time.Duration(i) * time.Millisecond),
		}
	}
	return out
}

func newTestScheduler(t *testing.T, cfg Config, client broker.Client, sizer stop.Sizer) *Scheduler {
	t.Helper()
	dir := t.TempDir()
	ticks, err := csvlog.OpenTickLog(filepath.Join(dir, "raw_tick_data.csv"))
	if err != nil {
		t.Fatalf("tick log: %v", err)
	}
	t.Cleanup(func() { ticks.Close() })
	decisions, err := csvlog.OpenDecisionLog(filepath.Join(dir, "tick_data.csv"))
	if err != nil {
		t.Fatalf("decision log: %v", err)
	}
	t.Cleanup(func() { decisions.Close() })
	orders, err := csvlog.OpenOrderLog(filepath.Join(dir, "order_data.csv"))
	if err != nil {
		t.Fatalf("order log: %v", err)
	}
	t.Cleanup(func() { orders.Close() })

	if sizer == nil {
		sizer = stop.NewStdevMultiple(2.0, 0.0005)
	}
	return New(cfg, Deps{
		Broker:    client,
		Estimator: strategy.NewEstimator(30, 0.0001),
		Sizer:     sizer,
		Builder:   execution.NewBuilder("BTCUSD", 0.01, 0.00001),
		Limits:    risk.Limits{MaxVolumePerOrder: 1},
		Ticks:     ticks,
		Decisions: decisions,
		Orders:    orders,
		Log:       zerolog.Nop(),
	})
}

func fastConfig(iterations int) Config {
	return Config{
		Symbol:     "BTCUSD",
		Volume:     0.01,
		BatchSize:  200,
		Lookback:   time.Minute,
		Interval:   time.Millisecond,
		Iterations: iterations,
	}
}

func TestRisingWindowSubmitsBuy(t *testing.T) {
	base := time.Now()
	client := &scriptedBroker{batches: [][]signal.Tick{steppedTicks(30, 100.00, 0.01, base)}}
	s := newTestScheduler(t, fastConfig(1), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(client.submitted) != 1 {
		t.Fatalf("expected 1 order, got %d", len(client.submitted))
	}
	order := client.submitted[0]
	if order.Side != execution.Buy {
		t.Fatalf("side = %s, want BUY", order.Side)
	}
	// Stop distance is 2x the population stdev of the 30-price ramp,
	// well above the broker minimum of 0.0005.
	wantDist := 2.0 * 0.01 * math.Sqrt((30*30-1)/12.0)
	entry := 100.29
	if math.Abs(order.TakeProfit-(entry+wantDist)) > 1e-5 {
		t.Fatalf("tp = %v, want %v", order.TakeProfit, entry+wantDist)
	}
	if math.Abs(order.StopLoss-(entry-wantDist)) > 1e-5 {
		t.Fatalf("sl = %v, want %v", order.StopLoss, entry-wantDist)
	}
	if s.PreviousSlope() <= 0.0001 {
		t.Fatalf("previous slope not retained: %v", s.PreviousSlope())
	}
}

func TestFallingWindowSubmitsSell(t *testing.T) {
	base := time.Now()
	client := &scriptedBroker{batches: [][]signal.Tick{steppedTicks(30, 100.29, -0.01, base)}}
	s := newTestScheduler(t, fastConfig(1), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(client.submitted) != 1 {
		t.Fatalf("expected 1 order, got %d", len(client.submitted))
	}
	if client.submitted[0].Side != execution.Sell {
		t.Fatalf("side = %s, want SELL", client.submitted[0].Side)
	}
}

func TestFlatWindowSubmitsNothing(t *testing.T) {
	base := time.Now()
	flat := make([]signal.Tick, 30)
	for i := range flat {
		flat[i] = signal.Tick{Symbol: "BTCUSD", Price: 50.0, Ts: base.Add(time.Duration(i) * time.Millisecond)}
	}
	client := &scriptedBroker{batches: [][]signal.Tick{flat}}
	s := newTestScheduler(t, fastConfig(1), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(client.submitted) != 0 {
		t.Fatalf("flat window submitted %d orders", len(client.submitted))
	}
	if s.PreviousSlope() != 0 {
		t.Fatalf("previous slope = %v, want 0", s.PreviousSlope())
	}
}

func TestPartialWindowSkipsDecision(t *testing.T) {
	base := time.Now()
	client := &scriptedBroker{batches: [][]signal.Tick{steppedTicks(10, 100.00, 0.01, base)}}
	s := newTestScheduler(t, fastConfig(1), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(client.submitted) != 0 {
		t.Fatalf("partial window submitted %d orders", len(client.submitted))
	}
}

func TestEmptyFetchStillEvaluatesFullWindow(t *testing.T) {
	base := time.Now()
	// First iteration fills the window; the second fetch returns nothing
	// but the stale full window is still evaluated and traded.
	client := &scriptedBroker{batches: [][]signal.Tick{steppedTicks(30, 100.00, 0.01, base)}}
	s := newTestScheduler(t, fastConfig(2), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if client.fetchCalls != 2 {
		t.Fatalf("expected 2 fetches, got %d", client.fetchCalls)
	}
	if len(client.submitted) != 2 {
		t.Fatalf("expected an order per iteration, got %d", len(client.submitted))
	}
}

func TestFetchErrorTreatedAsEmptyCycle(t *testing.T) {
	client := &scriptedBroker{fetchErr: errors.New("gateway down")}
	s := newTestScheduler(t, fastConfig(3), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("fetch failures must not stop the loop: %v", err)
	}
	if client.fetchCalls != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", client.fetchCalls)
	}
}

func TestHighWaterAdvancesPastNewestTick(t *testing.T) {
	base := time.Now()
	client := &scriptedBroker{batches: [][]signal.Tick{steppedTicks(5, 100, 0.01, base)}}
	s := newTestScheduler(t, fastConfig(2), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	newest := base.Add(4 * time.Millisecond)
	second := client.sinceSeen[1]
	if !second.After(newest) {
		t.Fatalf("second fetch since = %v, want after %v", second, newest)
	}
	if got := second.Sub(newest); got != time.Microsecond {
		t.Fatalf("high-water advanced by %v, want 1µs", got)
	}
}

func TestRejectedOrderDoesNotStopLoop(t *testing.T) {
	base := time.Now()
	client := &scriptedBroker{
		batches: [][]signal.Tick{steppedTicks(30, 100.00, 0.01, base)},
		result:  &execution.Result{Retcode: 10004, Comment: "requote"},
	}
	s := newTestScheduler(t, fastConfig(2), client, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(client.submitted) != 2 {
		t.Fatalf("rejection should not halt attempts, got %d", len(client.submitted))
	}
}

func TestZeroDistanceStopSkipsOrder(t *testing.T) {
	base := time.Now()
	// Near-flat ramp: slope stays above threshold while variance is tiny,
	// and the raw-variance policy has no floor. Prices step by 0.0002.
	client := &scriptedBroker{batches: [][]signal.Tick{steppedTicks(30, 1.0, 0.0002, base)}}
	s := newTestScheduler(t, fastConfig(1), client, zeroSizer{})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(client.submitted) != 0 {
		t.Fatalf("zero-width stop still submitted %d orders", len(client.submitted))
	}
}

// zeroSizer always produces a zero distance, standing in for the raw
// variance policy on a flat window.
type zeroSizer struct{}

func (zeroSizer) Size(signal.TrendSnapshot) float64 { return 0 }
func (zeroSizer) Name() string                      { return "zero" }

func TestRunStopsOnCancel(t *testing.T) {
	client := &scriptedBroker{}
	cfg := fastConfig(1000)
	cfg.Interval = time.Hour
	s := newTestScheduler(t, cfg, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
}

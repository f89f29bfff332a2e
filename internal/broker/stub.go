package broker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

const stubBatch = 5

// Stub emits deterministic synthetic ticks and acknowledges every order,
// useful for tests and offline runs.
type Stub struct {
	mu          sync.Mutex
	price       float64
	ticket      int64
	constraints Constraints
	submissions []execution.OrderRequest
	log         zerolog.Logger
}

// NewStub starts the synthetic price walk at 100.0.
func NewStub(constraints Constraints, log zerolog.Logger) *Stub {
	return &Stub{price: 100.0, constraints: constraints, log: log}
}

// FetchTicks fabricates a small batch of steadily rising ticks stamped
// after since.
func (s *Stub) FetchTicks(_ context.Context, symbol string, since time.Time, max int) ([]signal.Tick, error) {
	n := stubBatch
	if max > 0 && max < n {
		n = max
	}
	base := time.Now()
	if base.Before(since) {
		base = since
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ticks := make([]signal.Tick, 0, n)
	for i := 0; i < n; i++ {
		s.price += 0.01
		ticks = append(ticks, signal.Tick{
			Symbol: symbol,
			Price:  s.price,
			Ts:     base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return ticks, nil
}

// SubmitOrder records the request and acknowledges it with a synthetic ticket.
func (s *Stub) SubmitOrder(_ context.Context, order execution.OrderRequest) (*execution.Result, error) {
	s.mu.Lock()
	s.ticket++
	ticket := s.ticket
	s.submissions = append(s.submissions, order)
	s.mu.Unlock()

	s.log.Info().Str("sym", order.Symbol).Str("side", string(order.Side)).Float64("px", order.Price).Msg("stub order accepted")
	return &execution.Result{
		Retcode: execution.RetcodeDone,
		Ticket:  ticket,
		Deal:    ticket,
		Price:   order.Price,
	}, nil
}

// SymbolConstraints returns the configured synthetic constraints.
func (s *Stub) SymbolConstraints(context.Context, string) (Constraints, error) {
	return s.constraints, nil
}

// Close is a no-op.
func (s *Stub) Close() error { return nil }

// Submissions returns a copy of every accepted order, oldest first.
func (s *Stub) Submissions() []execution.OrderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]execution.OrderRequest, len(s.submissions))
	copy(out, s.submissions)
	return out
}

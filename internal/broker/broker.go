// Package broker hosts connectors for the trading venue terminal.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderGateway talks to a terminal bridge over REST.
	ProviderGateway = "gateway"
	// ProviderStream buffers trades from a public websocket and paper-logs orders.
	ProviderStream = "stream"
)

// ErrNoConstraints marks a venue that did not report symbol constraints.
var ErrNoConstraints = errors.New("broker: no symbol constraints")

// Constraints describes the venue limits fetched once at startup and held
// immutable for the process lifetime.
type Constraints struct {
	StopsLevel int     // minimum stop distance, in points
	Point      float64 // price point size
}

// MinStopPrice converts the point-based stop level into price units,
// falling back to def when the venue reports no usable constraint.
func (c Constraints) MinStopPrice(def float64) float64 {
	d := float64(c.StopsLevel) * c.Point
	if d <= 0 {
		return def
	}
	return d
}

// Client is the venue boundary the polling loop depends on.
type Client interface {
	// FetchTicks returns ticks observed at or after since, oldest first,
	// capped at max. An empty slice means no new data.
	FetchTicks(ctx context.Context, symbol string, since time.Time, max int) ([]signal.Tick, error)
	// SubmitOrder places a market order; a nil result with nil error means
	// the venue returned nothing usable.
	SubmitOrder(ctx context.Context, req execution.OrderRequest) (*execution.Result, error)
	// SymbolConstraints is read once at startup.
	SymbolConstraints(ctx context.Context, symbol string) (Constraints, error)
	Close() error
}

// Options configures provider construction.
type Options struct {
	GatewayURL         string
	StreamURL          string
	Symbol             string
	Timeout            time.Duration
	DefaultConstraints Constraints
}

// New constructs a client backed by the requested provider. The context
// bounds any background consumer the provider starts.
func New(ctx context.Context, provider string, opts Options, log zerolog.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderStub:
		return NewStub(opts.DefaultConstraints, log), nil
	case ProviderGateway:
		return NewGateway(opts.GatewayURL, opts.Timeout, log), nil
	case ProviderStream:
		return NewStream(ctx, opts.StreamURL, opts.Symbol, opts.DefaultConstraints, log), nil
	default:
		return nil, fmt.Errorf("broker: unknown provider %q", provider)
	}
}

// Package execution handles order construction for venue submission.
package execution

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

// Side enumerates order directions accepted by the venue.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Venue request constants carried on every submission.
const (
	DefaultDeviation = 20
	TimeGTC          = "GTC"
	FillingIOC       = "IOC"
)

// RetcodeDone is the venue status code for a completed submission.
const RetcodeDone = 10009

// OrderRequest is a fully specified market order with protective stops.
// Requests are constructed fresh per decision and never mutated after.
type OrderRequest struct {
	ClientID    string  `json:"client_id"`
	Symbol      string  `json:"symbol"`
	Side        Side    `json:"side"`
	Volume      float64 `json:"volume"`
	Price       float64 `json:"price"`
	StopLoss    float64 `json:"sl"`
	TakeProfit  float64 `json:"tp"`
	Deviation   int     `json:"deviation"`
	TimeInForce string  `json:"type_time"`
	Filling     string  `json:"type_filling"`
	Comment     string  `json:"comment"`
}

// Result reports the venue's response to a submission.
type Result struct {
	Retcode int
	Ticket  int64
	Deal    int64
	Price   float64
	Profit  float64
	Comment string
}

// OK reports whether the venue completed the submission.
func (r *Result) OK() bool { return r != nil && r.Retcode == RetcodeDone }

// Builder constructs venue-ready order requests with symmetric stops around
// the entry price. Symbol and volume are fixed for the life of the process;
// prices are normalized to the symbol's point size.
type Builder struct {
	symbol string
	volume float64
	digits int32
}

// NewBuilder derives the price precision from the symbol point size; a
// non-positive point disables rounding.
func NewBuilder(symbol string, volume float64, point float64) *Builder {
	return &Builder{symbol: symbol, volume: volume, digits: digitsFromPoint(point)}
}

// Build produces a request for the given intent: for a buy, take-profit sits
// one stop distance above entry and stop-loss one below; a sell inverts the
// signs. Intent None is a caller error.
func (b *Builder) Build(intent signal.Intent, entry, distance float64) (OrderRequest, error) {
	var side Side
	var sl, tp float64
	switch intent {
	case signal.Buy:
		side = Buy
		tp = entry + distance
		sl = entry - distance
	case signal.Sell:
		side = Sell
		tp = entry - distance
		sl = entry + distance
	default:
		return OrderRequest{}, errors.New("execution: cannot build order for intent NONE")
	}

	word := "Buy"
	if side == Sell {
		word = "Sell"
	}
	return OrderRequest{
		ClientID:    uuid.NewString(),
		Symbol:      b.symbol,
		Side:        side,
		Volume:      b.volume,
		Price:       b.round(entry),
		StopLoss:    b.round(sl),
		TakeProfit:  b.round(tp),
		Deviation:   DefaultDeviation,
		TimeInForce: TimeGTC,
		Filling:     FillingIOC,
		Comment:     fmt.Sprintf("Slope-based %s (stop=%.5f)", word, distance),
	}, nil
}

func digitsFromPoint(point float64) int32 {
	if point <= 0 {
		return -1
	}
	d := decimal.NewFromFloat(point)
	if d.Exponent() >= 0 {
		return 0
	}
	return -d.Exponent()
}

func (b *Builder) round(v float64) float64 {
	if b.digits < 0 {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(b.digits).Float64()
	return f
}

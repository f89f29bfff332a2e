// Package signal standardizes payloads shared between the broker boundary and strategy layers.
package signal

import "time"

// Tick models a single observed trade for a symbol.
type Tick struct {
	Symbol string
	Price  float64
	Ts     time.Time
}

// FromQuote builds a Tick from raw venue fields, substituting the bid/ask
// midpoint when the venue reports no usable last-trade price.
func FromQuote(symbol string, last, bid, ask float64, ts time.Time) Tick {
	price := last
	if price <= 0 {
		price = (bid + ask) / 2
	}
	return Tick{Symbol: symbol, Price: price, Ts: ts}
}

// Trend classifies the direction of the windowed slope.
type Trend string

const (
	Bullish Trend = "Bullish"
	Bearish Trend = "Bearish"
	Neutral Trend = "Neutral"
)

// TrendSnapshot carries the statistics derived from one full price window.
type TrendSnapshot struct {
	Variance float64
	Slope    float64
	Trend    Trend
}

// Intent expresses the directional decision derived from a snapshot.
type Intent int

const (
	// None means no action this period.
	None Intent = iota
	Buy
	Sell
)

func (i Intent) String() string {
	switch i {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Package strategy derives trend statistics and directional intents from the price window.
package strategy

import (
	"fmt"
	"math"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

// Estimator computes dispersion and trend statistics over a full window.
// The independent variable of the regression is the arrival index 0..N-1,
// so its mean and variance are fixed once the window size is known.
type Estimator struct {
	size      int
	threshold float64
	xMean     float64
	xVar      float64
}

// NewEstimator builds an estimator for windows of exactly size prices,
// classifying slopes beyond threshold as directional.
func NewEstimator(size int, threshold float64) *Estimator {
	if size < 2 {
		size = 30
	}
	if threshold <= 0 {
		threshold = 0.0001
	}
	n := float64(size)
	return &Estimator{
		size:      size,
		threshold: threshold,
		xMean:     (n - 1) / 2,
		// population variance of the integers 0..N-1
		xVar: (n*n - 1) / 12,
	}
}

// Size returns the window length the estimator was built for.
func (e *Estimator) Size() int { return e.size }

// Threshold returns the slope magnitude required for a directional trend.
func (e *Estimator) Threshold() float64 { return e.threshold }

// Evaluate computes population variance, the least-squares slope of price
// against arrival index, and the trend classification. The input must hold
// exactly the configured window size; callers check Window.Full first.
func (e *Estimator) Evaluate(prices []float64) (signal.TrendSnapshot, error) {
	if len(prices) != e.size {
		return signal.TrendSnapshot{}, fmt.Errorf("evaluate: window has %d prices, want %d", len(prices), e.size)
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(e.size)

	var sqDiff, covXY float64
	for i, p := range prices {
		d := p - mean
		sqDiff += d * d
		covXY += (float64(i) - e.xMean) * d
	}
	variance := sqDiff / float64(e.size)
	slope := covXY / float64(e.size) / e.xVar

	return signal.TrendSnapshot{
		Variance: variance,
		Slope:    slope,
		Trend:    e.classify(slope),
	}, nil
}

func (e *Estimator) classify(slope float64) signal.Trend {
	switch {
	case slope > e.threshold:
		return signal.Bullish
	case slope < -e.threshold:
		return signal.Bearish
	default:
		return signal.Neutral
	}
}

// Stdev returns the standard deviation implied by a snapshot's variance.
func Stdev(snap signal.TrendSnapshot) float64 {
	return math.Sqrt(snap.Variance)
}

// Decide maps a trend classification to an order intent. The mapping is
// memoryless: each period is decided independently of prior intents.
func Decide(snap signal.TrendSnapshot) signal.Intent {
	switch snap.Trend {
	case signal.Bullish:
		return signal.Buy
	case signal.Bearish:
		return signal.Sell
	default:
		return signal.None
	}
}

package strategy

import (
	"math"
	"testing"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

const eps = 1e-9

func constantWindow(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func steppedWindow(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestEvaluateConstantPrices(t *testing.T) {
	e := NewEstimator(30, 0.0001)
	snap, err := e.Evaluate(constantWindow(30, 50.0))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if snap.Variance != 0 {
		t.Fatalf("variance = %v, want 0", snap.Variance)
	}
	if snap.Slope != 0 {
		t.Fatalf("slope = %v, want 0", snap.Slope)
	}
	if snap.Trend != signal.Neutral {
		t.Fatalf("trend = %s, want Neutral", snap.Trend)
	}
}

func TestEvaluateLinearIncrease(t *testing.T) {
	e := NewEstimator(30, 0.0001)
	snap, err := e.Evaluate(steppedWindow(30, 100.00, 0.01))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	// A perfectly linear series has slope exactly equal to its step.
	if math.Abs(snap.Slope-0.01) > eps {
		t.Fatalf("slope = %v, want 0.01", snap.Slope)
	}
	// Population variance of start + i*d is d^2 * (N^2-1)/12.
	wantVar := 0.0001 * (30*30 - 1) / 12.0
	if math.Abs(snap.Variance-wantVar) > eps {
		t.Fatalf("variance = %v, want %v", snap.Variance, wantVar)
	}
	if snap.Trend != signal.Bullish {
		t.Fatalf("trend = %s, want Bullish", snap.Trend)
	}
}

func TestEvaluateSlopeProportionalToStep(t *testing.T) {
	e := NewEstimator(30, 0.0001)
	small, err := e.Evaluate(steppedWindow(30, 10, 0.02))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	large, err := e.Evaluate(steppedWindow(30, 10, 0.06))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if math.Abs(large.Slope-3*small.Slope) > eps {
		t.Fatalf("tripled step gave slope %v, want %v", large.Slope, 3*small.Slope)
	}
}

func TestEvaluateLinearDecrease(t *testing.T) {
	e := NewEstimator(30, 0.0001)
	snap, err := e.Evaluate(steppedWindow(30, 200, -0.05))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if snap.Slope >= 0 {
		t.Fatalf("slope = %v, want negative", snap.Slope)
	}
	if snap.Trend != signal.Bearish {
		t.Fatalf("trend = %s, want Bearish", snap.Trend)
	}
}

func TestClassifyBoundaryIsNeutral(t *testing.T) {
	// A step exactly equal to the threshold yields slope == threshold,
	// which strict inequality classifies as Neutral on both sides.
	e := NewEstimator(30, 0.0001)
	up, err := e.Evaluate(steppedWindow(30, 1, 0.0001))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if up.Trend != signal.Neutral {
		t.Fatalf("slope == +threshold classified %s, want Neutral", up.Trend)
	}
	down, err := e.Evaluate(steppedWindow(30, 1, -0.0001))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if down.Trend != signal.Neutral {
		t.Fatalf("slope == -threshold classified %s, want Neutral", down.Trend)
	}
}

func TestEvaluateRejectsWrongLength(t *testing.T) {
	e := NewEstimator(30, 0.0001)
	if _, err := e.Evaluate(constantWindow(29, 1)); err == nil {
		t.Fatalf("expected error for short window")
	}
	if _, err := e.Evaluate(constantWindow(31, 1)); err == nil {
		t.Fatalf("expected error for long window")
	}
}

func TestDecideMapping(t *testing.T) {
	if got := Decide(signal.TrendSnapshot{Trend: signal.Bullish}); got != signal.Buy {
		t.Fatalf("Bullish decided %s, want BUY", got)
	}
	if got := Decide(signal.TrendSnapshot{Trend: signal.Bearish}); got != signal.Sell {
		t.Fatalf("Bearish decided %s, want SELL", got)
	}
	if got := Decide(signal.TrendSnapshot{Trend: signal.Neutral}); got != signal.None {
		t.Fatalf("Neutral decided %s, want NONE", got)
	}
}

func TestStdev(t *testing.T) {
	if got := Stdev(signal.TrendSnapshot{Variance: 4}); got != 2 {
		t.Fatalf("Stdev(4) = %v, want 2", got)
	}
}

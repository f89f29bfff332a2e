package execution

import (
	"math"
	"strings"
	"testing"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

func TestBuildBuySymmetricStops(t *testing.T) {
	b := NewBuilder("BTCUSD", 0.01, 0)
	order, err := b.Build(signal.Buy, 100.0, 0.25)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if order.Side != Buy {
		t.Fatalf("side = %s, want BUY", order.Side)
	}
	if got := order.TakeProfit - order.Price; math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("tp - entry = %v, want 0.25", got)
	}
	if got := order.Price - order.StopLoss; math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("entry - sl = %v, want 0.25", got)
	}
	if order.Volume != 0.01 || order.Symbol != "BTCUSD" {
		t.Fatalf("unexpected volume/symbol: %v %s", order.Volume, order.Symbol)
	}
	if order.ClientID == "" {
		t.Fatalf("expected a client id")
	}
	if !strings.Contains(order.Comment, "Slope-based Buy") {
		t.Fatalf("unexpected comment %q", order.Comment)
	}
}

func TestBuildSellInvertsStops(t *testing.T) {
	b := NewBuilder("BTCUSD", 0.01, 0)
	order, err := b.Build(signal.Sell, 100.0, 0.25)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if order.Side != Sell {
		t.Fatalf("side = %s, want SELL", order.Side)
	}
	if got := order.Price - order.TakeProfit; math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("entry - tp = %v, want 0.25", got)
	}
	if got := order.StopLoss - order.Price; math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("sl - entry = %v, want 0.25", got)
	}
}

func TestBuildRejectsNoneIntent(t *testing.T) {
	b := NewBuilder("BTCUSD", 0.01, 0)
	if _, err := b.Build(signal.None, 100.0, 0.25); err == nil {
		t.Fatalf("expected error for intent NONE")
	}
}

func TestBuildRoundsToPointSize(t *testing.T) {
	b := NewBuilder("EURUSD", 0.01, 0.00001)
	order, err := b.Build(signal.Buy, 1.234567891, 0.000173338)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if order.Price != 1.23457 {
		t.Fatalf("entry rounded to %v, want 1.23457", order.Price)
	}
	if order.TakeProfit != 1.23474 {
		t.Fatalf("tp rounded to %v, want 1.23474", order.TakeProfit)
	}
	if order.StopLoss != 1.23439 {
		t.Fatalf("sl rounded to %v, want 1.23439", order.StopLoss)
	}
}

func TestBuildCarriesVenueFields(t *testing.T) {
	b := NewBuilder("BTCUSD", 0.01, 0)
	order, err := b.Build(signal.Buy, 100.0, 0.5)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if order.Deviation != DefaultDeviation {
		t.Fatalf("deviation = %d, want %d", order.Deviation, DefaultDeviation)
	}
	if order.TimeInForce != TimeGTC || order.Filling != FillingIOC {
		t.Fatalf("unexpected venue fields: %s %s", order.TimeInForce, order.Filling)
	}
}

func TestResultOK(t *testing.T) {
	var nilResult *Result
	if nilResult.OK() {
		t.Fatalf("nil result reported OK")
	}
	if (&Result{Retcode: 10004}).OK() {
		t.Fatalf("requote retcode reported OK")
	}
	if !(&Result{Retcode: RetcodeDone}).OK() {
		t.Fatalf("done retcode not OK")
	}
}

// Package stop sizes the symmetric stop distance applied around an entry price.
package stop

import (
	"errors"
	"math"
	"strings"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

// ErrZeroDistance marks a sized stop that collapsed to zero width, which a
// venue would reject as stop_loss == take_profit == entry.
var ErrZeroDistance = errors.New("stop: zero-width distance")

// Sizer maps window dispersion to a non-negative symmetric stop distance.
type Sizer interface {
	Size(snap signal.TrendSnapshot) float64
	Name() string
}

// Params expresses the knobs consumed by the policy constructors.
type Params struct {
	Multiplier    float64
	VarianceFloor float64
	BrokerMinStop float64
}

// StdevMultiple sizes stops as a fixed multiple of the window standard
// deviation, never tighter than the venue minimum stop distance.
type StdevMultiple struct {
	multiplier float64
	brokerMin  float64
}

// NewStdevMultiple builds the multiplier policy with its venue floor.
func NewStdevMultiple(multiplier, brokerMin float64) *StdevMultiple {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return &StdevMultiple{multiplier: multiplier, brokerMin: math.Max(0, brokerMin)}
}

func (s *StdevMultiple) Name() string { return "stdev_multiple" }

func (s *StdevMultiple) Size(snap signal.TrendSnapshot) float64 {
	return math.Max(s.multiplier*math.Sqrt(snap.Variance), s.brokerMin)
}

// VarianceFloor sizes stops as the raw window variance clamped to a fixed
// floor. The distance is the variance itself, not the standard deviation.
type VarianceFloor struct {
	floor float64
}

// NewVarianceFloor builds the floored variance policy.
func NewVarianceFloor(floor float64) *VarianceFloor {
	if floor <= 0 {
		floor = 30.0
	}
	return &VarianceFloor{floor: floor}
}

func (v *VarianceFloor) Name() string { return "variance_floor" }

func (v *VarianceFloor) Size(snap signal.TrendSnapshot) float64 {
	return math.Max(snap.Variance, v.floor)
}

// RawVariance sizes stops as the unclamped window variance. A flat window
// yields zero, which callers must reject via ErrZeroDistance before
// submitting an order.
type RawVariance struct{}

func (RawVariance) Name() string { return "raw_variance" }

func (RawVariance) Size(snap signal.TrendSnapshot) float64 { return snap.Variance }

// Build returns the sizer implementation matching the configured policy.
func Build(policy string, params Params) (Sizer, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", "stdev_multiple":
		return NewStdevMultiple(params.Multiplier, params.BrokerMinStop), nil
	case "variance_floor":
		return NewVarianceFloor(params.VarianceFloor), nil
	case "raw_variance":
		return RawVariance{}, nil
	default:
		return nil, errors.New("stop: unknown policy " + policy)
	}
}

// Validate rejects distances a venue could not accept.
func Validate(distance float64) error {
	if distance <= 0 {
		return ErrZeroDistance
	}
	return nil
}

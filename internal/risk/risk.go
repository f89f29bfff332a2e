// Package risk encodes guard-rails applied before order submission.
package risk

// Limits caps how much volume a single order may carry. A zero limit
// disables the check.
type Limits struct {
	MaxVolumePerOrder float64
}

// Allow reports whether an order of the given volume may be submitted.
func (l Limits) Allow(volume float64) bool {
	if l.MaxVolumePerOrder <= 0 {
		return true
	}
	return volume <= l.MaxVolumePerOrder
}

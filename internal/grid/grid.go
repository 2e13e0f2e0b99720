// Package grid holds the pure price-grid math. No state, no I/O.
package grid

import "fmt"

// DefaultLevels is how many trigger-zone prices Levels produces when the
// caller has no preference.
const DefaultLevels = 5

// DefaultActivationRate models the fraction of grid lines expected to
// trigger within the estimation window.
const DefaultActivationRate = 0.5

// StepSize returns the price distance between adjacent grid lines.
func StepSize(upperLimit, lowerLimit float64, gridCount int) (float64, error) {
	if gridCount < 1 {
		return 0, fmt.Errorf("grid count must be at least 1, got %d", gridCount)
	}
	if upperLimit <= lowerLimit {
		return 0, fmt.Errorf("upper limit %.2f must exceed lower limit %.2f", upperLimit, lowerLimit)
	}
	return (upperLimit - lowerLimit) / float64(gridCount), nil
}

// Levels returns `levels` evenly spaced prices from upperLimit down to
// lowerLimit inclusive, used to mark trigger zones on a chart.
func Levels(upperLimit, lowerLimit float64, levels int) ([]float64, error) {
	if levels < 2 {
		return nil, fmt.Errorf("need at least 2 levels, got %d", levels)
	}
	if upperLimit <= lowerLimit {
		return nil, fmt.Errorf("upper limit %.2f must exceed lower limit %.2f", upperLimit, lowerLimit)
	}

	out := make([]float64, levels)
	span := upperLimit - lowerLimit
	for i := 0; i < levels; i++ {
		out[i] = upperLimit - span*float64(i)/float64(levels-1)
	}
	out[levels-1] = lowerLimit
	return out, nil
}

// PotentialProfit estimates earnings if activationRate of the grid lines
// trigger. An estimate, not a guarantee.
func PotentialProfit(investment, profitPerGrid float64, gridCount int, activationRate float64) float64 {
	return investment * profitPerGrid * float64(gridCount) * activationRate
}

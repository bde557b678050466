package classify

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// pointBiserial returns |r| between a continuous variable and a binary
// outcome, i.e. the Pearson correlation against a 0/1 pass indicator.
// Fewer than two points or a constant series yields 0.
func pointBiserial(xs []float64, pass []bool) float64 {
	if len(xs) < 2 {
		return 0
	}
	ys := indicators(pass)
	if stat.PopVariance(xs, nil) == 0 || stat.PopVariance(ys, nil) == 0 {
		return 0
	}
	return clamp01(math.Abs(stat.Correlation(xs, ys, nil)))
}

// correlationRatio returns η between a categorical variable and a binary
// outcome: the share of pass/fail variance explained by group membership.
func correlationRatio(groups []string, pass []bool) float64 {
	n := len(groups)
	if n < 2 {
		return 0
	}

	ys := indicators(pass)
	mean, variance := stat.PopMeanVariance(ys, nil)
	ssTotal := variance * float64(n)
	if ssTotal == 0 {
		return 0
	}

	byGroup := make(map[string][]float64)
	for i, g := range groups {
		byGroup[g] = append(byGroup[g], ys[i])
	}

	var ssBetween float64
	for _, members := range byGroup {
		d := stat.Mean(members, nil) - mean
		ssBetween += float64(len(members)) * d * d
	}
	return clamp01(math.Sqrt(ssBetween / ssTotal))
}

func indicators(pass []bool) []float64 {
	ys := make([]float64, len(pass))
	for i, p := range pass {
		if p {
			ys[i] = 1
		}
	}
	return ys
}

// clamp01 absorbs floating-point overshoot.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

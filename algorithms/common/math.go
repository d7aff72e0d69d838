package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions shared by the feature and statistics stages,
// backed by gonum.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance (N-1 denominator) of a slice.
// Constant data yields exactly zero rather than a rounding residue.
func Variance(data []float64) float64 {
	if len(data) < 2 || isConstant(data) {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// MeanVariance returns the arithmetic mean and the sample variance together.
func MeanVariance(data []float64) (mean, variance float64) {
	if len(data) == 0 {
		return 0.0, 0.0
	}
	if len(data) < 2 || isConstant(data) {
		return data[0], 0.0
	}
	return stat.MeanVariance(data, nil)
}

// SafeDivide returns num/den, or 0 when den is zero or the quotient is not finite.
func SafeDivide(num, den float64) float64 {
	if den == 0 {
		return 0.0
	}
	q := num / den
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0.0
	}
	return q
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

func isConstant(data []float64) bool {
	return floats.Min(data) == floats.Max(data)
}

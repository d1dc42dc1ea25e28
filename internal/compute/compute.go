// Package compute implements the deterministic numeric pipeline: percent
// change, z-scores, status classification, the derived indicators, the
// five chain links, and the composite stress index. Every function here
// is pure and takes ascending Observation slices; none of them touch the
// network or the store.
package compute

import (
	"math"

	"github.com/derickschaefer/undertow/internal/model"
)

const (
	zWindow  = 60
	zMinObs  = 5
	zeroPlus = 0.0
)

// PercentChange returns the percent change between the latest observation
// and the one N periods back, or nil if there are fewer than N+1 points or
// the prior value is zero.
func PercentChange(obs []model.Observation, n int) *float64 {
	if len(obs) < n+1 {
		return nil
	}
	last := obs[len(obs)-1].Value
	prev := obs[len(obs)-1-n].Value
	if prev == 0 {
		return nil
	}
	v := (last - prev) / math.Abs(prev) * 100
	return &v
}

// yoyPeriods maps a series frequency to the number of periods in a year.
var yoyPeriods = map[model.Frequency]int{
	model.FreqMonthly:   12,
	model.FreqQuarterly: 4,
	model.FreqWeekly:    52,
	model.FreqDaily:     252,
}

// YoYChange applies PercentChange with the period count for freq,
// defaulting to 12 (monthly) for unrecognised frequencies.
func YoYChange(obs []model.Observation, freq model.Frequency) *float64 {
	n, ok := yoyPeriods[freq]
	if !ok {
		n = 12
	}
	return PercentChange(obs, n)
}

// ZScore computes the last value's z-score against a trailing window of
// up to zWindow points, using population statistics. Returns nil if fewer
// than zMinObs points are available; returns 0 if the window's standard
// deviation is 0.
func ZScore(obs []model.Observation) *float64 {
	if len(obs) < zMinObs {
		return nil
	}
	start := 0
	if len(obs) > zWindow {
		start = len(obs) - zWindow
	}
	window := obs[start:]

	mean := meanOf(window)
	std := popStdDev(window, mean)
	last := window[len(window)-1].Value

	var z float64
	if std == 0 {
		z = zeroPlus
	} else {
		z = (last - mean) / std
	}
	return &z
}

func meanOf(obs []model.Observation) float64 {
	var sum float64
	for _, o := range obs {
		sum += o.Value
	}
	return sum / float64(len(obs))
}

// popStdDev is the population (not sample) standard deviation: it divides
// by n, not n-1, as required for the z-score window in this pipeline.
func popStdDev(obs []model.Observation, mean float64) float64 {
	var sumSq float64
	for _, o := range obs {
		d := o.Value - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(obs)))
}

// Classify maps a nullable score to a Status per the fixed thresholds.
// When inverted is true, the sign of the score is flipped before
// classification — used for series where higher raw values are good
// (employment, consumption, sentiment, retail sales, money velocity).
func Classify(score *float64, inverted bool) model.Status {
	if score == nil || math.IsNaN(*score) {
		return model.StatusUnknown
	}
	s := *score
	if inverted {
		s = -s
	}
	switch {
	case s >= 2:
		return model.StatusCritical
	case s >= 1:
		return model.StatusWarning
	case s >= 0.5:
		return model.StatusElevated
	default:
		return model.StatusNormal
	}
}

// meanZ averages the non-nil z-scores in zs, dropping nils. Returns nil
// if all inputs are nil.
func meanZ(zs ...*float64) *float64 {
	var sum float64
	var n int
	for _, z := range zs {
		if z == nil {
			continue
		}
		sum += *z
		n++
	}
	if n == 0 {
		return nil
	}
	v := sum / float64(n)
	return &v
}

func negate(z *float64) *float64 {
	if z == nil {
		return nil
	}
	v := -*z
	return &v
}

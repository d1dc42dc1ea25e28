package compute_test

import (
	"math"
	"testing"

	"github.com/derickschaefer/undertow/internal/compute"
	"github.com/derickschaefer/undertow/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func makeObs(dates []string, values []float64) []model.Observation {
	out := make([]model.Observation, len(values))
	for i, v := range values {
		out[i] = model.Observation{Date: dates[i], Value: v}
	}
	return out
}

func seq(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}

func dateSeq(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "2020-01-" + string(rune('0'+i%10))
	}
	return out
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// ─── PercentChange ────────────────────────────────────────────────────────────

func TestPercentChangeBasic(t *testing.T) {
	obs := makeObs(dateSeq(4), []float64{100, 110, 120, 150})
	pc := compute.PercentChange(obs, 3)
	if pc == nil {
		t.Fatal("expected non-nil result")
	}
	if !approxEqual(*pc, 50.0, 1e-9) {
		t.Errorf("expected 50.0, got %v", *pc)
	}
}

func TestPercentChangeTooShort(t *testing.T) {
	obs := makeObs(dateSeq(2), []float64{100, 110})
	if pc := compute.PercentChange(obs, 3); pc != nil {
		t.Errorf("expected nil for insufficient history, got %v", *pc)
	}
}

func TestPercentChangeZeroPrior(t *testing.T) {
	obs := makeObs(dateSeq(2), []float64{0, 110})
	if pc := compute.PercentChange(obs, 1); pc != nil {
		t.Errorf("expected nil for zero prior value, got %v", *pc)
	}
}

func TestPercentChangeNegative(t *testing.T) {
	obs := makeObs(dateSeq(2), []float64{100, 90})
	pc := compute.PercentChange(obs, 1)
	if pc == nil {
		t.Fatal("expected non-nil result")
	}
	if !approxEqual(*pc, -10.0, 1e-9) {
		t.Errorf("expected -10.0, got %v", *pc)
	}
}

// ─── YoYChange ────────────────────────────────────────────────────────────────

func TestYoYChangeQuarterly(t *testing.T) {
	obs := makeObs(dateSeq(5), []float64{100, 101, 102, 103, 110})
	yoy := compute.YoYChange(obs, model.FreqQuarterly)
	if yoy == nil {
		t.Fatal("expected non-nil result")
	}
	if !approxEqual(*yoy, 10.0, 1e-9) {
		t.Errorf("expected 10.0, got %v", *yoy)
	}
}

func TestYoYChangeUnknownFrequencyDefaultsToMonthly(t *testing.T) {
	obs := makeObs(dateSeq(13), seq(1, 13))
	yoy := compute.YoYChange(obs, model.Frequency("unknown"))
	if yoy == nil {
		t.Fatal("expected non-nil result")
	}
}

// ─── ZScore ───────────────────────────────────────────────────────────────────

func TestZScoreTooFewObservations(t *testing.T) {
	obs := makeObs(dateSeq(4), []float64{1, 2, 3, 4})
	if z := compute.ZScore(obs); z != nil {
		t.Errorf("expected nil with fewer than 5 observations, got %v", *z)
	}
}

func TestZScoreZeroStdDev(t *testing.T) {
	obs := makeObs(dateSeq(5), []float64{5, 5, 5, 5, 5})
	z := compute.ZScore(obs)
	if z == nil {
		t.Fatal("expected non-nil result")
	}
	if *z != 0 {
		t.Errorf("expected 0 for zero variance window, got %v", *z)
	}
}

func TestZScoreUsesPopulationStdDev(t *testing.T) {
	// Values 1..5: population mean=3, population std=sqrt(2)=1.4142...
	// Last value (5) z = (5-3)/1.4142... = 1.41421356
	obs := makeObs(dateSeq(5), []float64{1, 2, 3, 4, 5})
	z := compute.ZScore(obs)
	if z == nil {
		t.Fatal("expected non-nil result")
	}
	if !approxEqual(*z, math.Sqrt(2), 1e-6) {
		t.Errorf("expected population z-score %v, got %v", math.Sqrt(2), *z)
	}
}

func TestZScoreWindowCapsAt60(t *testing.T) {
	values := make([]float64, 70)
	for i := range values {
		values[i] = float64(i)
	}
	values[0] = 10000 // outlier outside the 60-point trailing window
	obs := makeObs(dateSeq(70), values)
	z := compute.ZScore(obs)
	if z == nil {
		t.Fatal("expected non-nil result")
	}
	// The z-score for a strictly increasing run should be a small positive
	// number, not dominated by the stale outlier at index 0.
	if *z > 3 {
		t.Errorf("expected z-score unaffected by stale outlier, got %v", *z)
	}
}

// ─── Classify ─────────────────────────────────────────────────────────────────

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		score    float64
		expected model.Status
	}{
		{0, model.StatusNormal},
		{0.49, model.StatusNormal},
		{0.5, model.StatusElevated},
		{0.99, model.StatusElevated},
		{1.0, model.StatusWarning},
		{1.99, model.StatusWarning},
		{2.0, model.StatusCritical},
		{5.0, model.StatusCritical},
	}
	for _, c := range cases {
		s := c.score
		got := compute.Classify(&s, false)
		if got != c.expected {
			t.Errorf("Classify(%v, false): expected %v, got %v", c.score, c.expected, got)
		}
	}
}

func TestClassifyInverted(t *testing.T) {
	s := -2.0
	got := compute.Classify(&s, true)
	if got != model.StatusCritical {
		t.Errorf("Classify(-2.0, true): expected critical, got %v", got)
	}
}

func TestClassifyNilScore(t *testing.T) {
	if got := compute.Classify(nil, false); got != model.StatusUnknown {
		t.Errorf("Classify(nil, false): expected unknown, got %v", got)
	}
}

func TestClassifyNaNScore(t *testing.T) {
	nan := math.NaN()
	if got := compute.Classify(&nan, false); got != model.StatusUnknown {
		t.Errorf("Classify(NaN, false): expected unknown, got %v", got)
	}
}

// ─── BuildComposite ───────────────────────────────────────────────────────────

func TestBuildCompositeAllNormal(t *testing.T) {
	links := map[string]model.LinkResult{
		"a": {Status: model.StatusNormal},
		"b": {Status: model.StatusNormal},
	}
	c := compute.BuildComposite(links)
	if c.Score != 0 {
		t.Errorf("expected score 0, got %v", c.Score)
	}
	if c.StatusCounts[model.StatusNormal] != 2 {
		t.Errorf("expected 2 normal links, got %d", c.StatusCounts[model.StatusNormal])
	}
}

func TestBuildCompositeMixedRounds(t *testing.T) {
	links := map[string]model.LinkResult{
		"displacement":    {Status: model.StatusCritical}, // 100
		"spending":        {Status: model.StatusNormal},   // 0
		"ghost_gdp":       {Status: model.StatusNormal},   // 0
	}
	c := compute.BuildComposite(links)
	// mean = 100/3 = 33.333... rounds to 33.3
	if !approxEqual(c.Score, 33.3, 1e-9) {
		t.Errorf("expected 33.3, got %v", c.Score)
	}
}

func TestBuildCompositeInterpretationBands(t *testing.T) {
	cases := []struct {
		status model.Status
		count  int
		want   string
	}{
		{model.StatusCritical, 5, "Critical"},
		{model.StatusWarning, 5, "Warning"},
		{model.StatusElevated, 5, "Elevated"},
		{model.StatusNormal, 5, "Normal"},
	}
	for _, c := range cases {
		links := map[string]model.LinkResult{}
		for i := 0; i < c.count; i++ {
			links[string(rune('a'+i))] = model.LinkResult{Status: c.status}
		}
		got := compute.BuildComposite(links)
		if len(got.Interpretation) == 0 {
			t.Fatalf("expected non-empty interpretation")
		}
		if got.Interpretation[:len(c.want)] != c.want {
			t.Errorf("expected interpretation to start with %q, got %q", c.want, got.Interpretation)
		}
	}
}

func TestBuildCompositeEmptyLinks(t *testing.T) {
	c := compute.BuildComposite(map[string]model.LinkResult{})
	if c.Score != 0 {
		t.Errorf("expected score 0 for no links, got %v", c.Score)
	}
}

// ─── GhostGDP / DisplacementVelocity ──────────────────────────────────────────

func TestGhostGDPMissingSeries(t *testing.T) {
	fred := model.FredRaw{Links: map[string]map[string]model.Series{}}
	ind := compute.GhostGDP(fred)
	if ind.Status != model.StatusUnknown {
		t.Errorf("expected unknown status with no series, got %v", ind.Status)
	}
	if ind.Value != nil {
		t.Errorf("expected nil value with no series, got %v", *ind.Value)
	}
}

func TestDisplacementVelocityZeroDenominator(t *testing.T) {
	flat := makeObs(dateSeq(5), []float64{5, 5, 5, 5, 5})
	fred := model.FredRaw{Links: map[string]map[string]model.Series{
		"displacement": {
			"LNU04032239":   model.NewSeries(model.SeriesMeta{}, "LNU04032239", flat),
			"LNU04032237":   model.NewSeries(model.SeriesMeta{}, "LNU04032237", flat),
			"CES6054000001": model.NewSeries(model.SeriesMeta{}, "CES6054000001", flat),
			"UNRATE":        model.NewSeries(model.SeriesMeta{}, "UNRATE", flat),
		},
	}}
	ind := compute.DisplacementVelocity(fred)
	if ind.Value != nil {
		t.Errorf("expected nil value when UNRATE change is zero, got %v", *ind.Value)
	}
}

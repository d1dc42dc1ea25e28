package compute

import (
	"math"

	"github.com/derickschaefer/undertow/internal/model"
)

// series looks up a single series by link and id, returning its
// observation list and ok=false if either is absent.
func series(fred model.FredRaw, link, id string) ([]model.Observation, bool) {
	links, ok := fred.Links[link]
	if !ok {
		return nil, false
	}
	s, ok := links[id]
	if !ok {
		return nil, false
	}
	return s.Obs, true
}

func zOf(fred model.FredRaw, link, id string) *float64 {
	obs, ok := series(fred, link, id)
	if !ok {
		return nil
	}
	return ZScore(obs)
}

// GhostGDP = productivity YoY (OPHNFB, quarterly) minus real-wage YoY
// (LES1252881600Q, quarterly). Status = classify(score/2) so a
// 2-percentage-point gap is roughly one standard deviation.
func GhostGDP(fred model.FredRaw) model.DerivedIndicator {
	ind := model.DerivedIndicator{
		Name:        "ghost_gdp",
		Description: "Productivity growth outpacing real wage growth",
		Components:  map[string]float64{},
		Status:      model.StatusUnknown,
	}

	prod, okP := series(fred, "ghost_gdp", "OPHNFB")
	wage, okW := series(fred, "ghost_gdp", "LES1252881600Q")
	if !okP || !okW {
		return ind
	}

	prodYoY := YoYChange(prod, model.FreqQuarterly)
	wageYoY := YoYChange(wage, model.FreqQuarterly)
	if prodYoY == nil || wageYoY == nil {
		return ind
	}

	val := *prodYoY - *wageYoY
	ind.Value = &val
	ind.Components["productivity_yoy"] = *prodYoY
	ind.Components["real_wage_yoy"] = *wageYoY
	half := val / 2
	ind.Status = Classify(&half, false)
	return ind
}

// DisplacementVelocity = mean of 3-period percent changes of
// LNU04032239 and LNU04032237, divided by the absolute 3-period change
// of UNRATE. Nil if either numerator series is unavailable or the
// denominator is zero.
func DisplacementVelocity(fred model.FredRaw) model.DerivedIndicator {
	ind := model.DerivedIndicator{
		Name:        "displacement_velocity",
		Description: "White-collar displacement rate relative to overall unemployment change",
		Components:  map[string]float64{},
		Status:      model.StatusUnknown,
	}

	a, okA := series(fred, "displacement", "LNU04032239")
	b, okB := series(fred, "displacement", "LNU04032237")
	u, okU := series(fred, "displacement", "UNRATE")
	if !okA || !okB || !okU {
		return ind
	}

	pa := PercentChange(a, 3)
	pb := PercentChange(b, 3)
	pu := PercentChange(u, 3)
	if pa == nil || pb == nil || pu == nil {
		return ind
	}
	if *pu == 0 {
		return ind
	}

	numerator := (*pa + *pb) / 2
	velocity := numerator / math.Abs(*pu)
	ind.Value = &velocity
	ind.Components["white_collar_mean_change"] = numerator
	ind.Components["unrate_change"] = *pu

	shifted := velocity - 1
	ind.Status = Classify(&shifted, false)
	return ind
}

// chainLinkDef describes one of the five fixed links.
type chainLinkDef struct {
	name string
	// compute derives the link's composite z and per-indicator statuses.
	compute func(fred model.FredRaw) (z *float64, indicators map[string]model.IndicatorStatus)
}

var chainLinkDefs = []chainLinkDef{
	{name: "displacement", compute: displacementLink},
	{name: "spending", compute: spendingLink},
	{name: "ghost_gdp", compute: ghostGDPLink},
	{name: "credit_stress", compute: creditStressLink},
	{name: "mortgage_stress", compute: mortgageStressLink},
}

func displacementLink(fred model.FredRaw) (*float64, map[string]model.IndicatorStatus) {
	zA := zOf(fred, "displacement", "LNU04032239")
	zB := zOf(fred, "displacement", "LNU04032237")
	zEmp := zOf(fred, "displacement", "CES6054000001")
	zEmpInv := negate(zEmp)

	link := meanZ(zA, zB, zEmpInv)
	indicators := map[string]model.IndicatorStatus{
		"LNU04032239":   {Z: zA, Status: Classify(zA, false)},
		"LNU04032237":   {Z: zB, Status: Classify(zB, false)},
		"CES6054000001": {Z: zEmp, Status: Classify(zEmp, true)},
	}
	return link, indicators
}

func spendingLink(fred model.FredRaw) (*float64, map[string]model.IndicatorStatus) {
	zPCE := zOf(fred, "spending", "PCEC96")
	zUMC := zOf(fred, "spending", "UMCSENT")
	zRSAFS := zOf(fred, "spending", "RSAFS")

	mean := meanZ(zPCE, zUMC, zRSAFS)
	link := negate(mean)
	indicators := map[string]model.IndicatorStatus{
		"PCEC96":  {Z: zPCE, Status: Classify(zPCE, true)},
		"UMCSENT": {Z: zUMC, Status: Classify(zUMC, true)},
		"RSAFS":   {Z: zRSAFS, Status: Classify(zRSAFS, true)},
	}
	return link, indicators
}

func ghostGDPLink(fred model.FredRaw) (*float64, map[string]model.IndicatorStatus) {
	zM2V := zOf(fred, "ghost_gdp", "M2V")
	link := negate(zM2V)
	indicators := map[string]model.IndicatorStatus{
		"M2V": {Z: zM2V, Status: Classify(zM2V, true)},
	}
	return link, indicators
}

func creditStressLink(fred model.FredRaw) (*float64, map[string]model.IndicatorStatus) {
	zHY := zOf(fred, "credit_stress", "BAMLH0A0HYM2")
	zHYC := zOf(fred, "credit_stress", "BAMLH0A3HYC")
	zDRCL := zOf(fred, "credit_stress", "DRCLACBS")

	link := meanZ(zHY, zHYC, zDRCL)
	indicators := map[string]model.IndicatorStatus{
		"BAMLH0A0HYM2": {Z: zHY, Status: Classify(zHY, false)},
		"BAMLH0A3HYC":  {Z: zHYC, Status: Classify(zHYC, false)},
		"DRCLACBS":     {Z: zDRCL, Status: Classify(zDRCL, false)},
	}
	return link, indicators
}

func mortgageStressLink(fred model.FredRaw) (*float64, map[string]model.IndicatorStatus) {
	z := zOf(fred, "mortgage_stress", "DRSFRMACBS")
	indicators := map[string]model.IndicatorStatus{
		"DRSFRMACBS": {Z: z, Status: Classify(z, false)},
	}
	return z, indicators
}

// ChainLinks computes the five fixed links, in order, from a FredRaw
// snapshot.
func ChainLinks(fred model.FredRaw) map[string]model.LinkResult {
	out := make(map[string]model.LinkResult, len(chainLinkDefs))
	for _, def := range chainLinkDefs {
		z, indicators := def.compute(fred)
		out[def.name] = model.LinkResult{
			Name:       def.name,
			Status:     Classify(z, false),
			Z:          z,
			Indicators: indicators,
		}
	}
	return out
}

// statusScore maps a link status to its composite-index contribution.
var statusScore = map[model.Status]float64{
	model.StatusNormal:   0,
	model.StatusElevated: 25,
	model.StatusWarning:  50,
	model.StatusCritical: 100,
	model.StatusUnknown:  0,
}

// BuildComposite computes the 0-100 composite index from the five link
// results: arithmetic mean of mapped scores, rounded to one decimal,
// with a status histogram and banded interpretation.
func BuildComposite(links map[string]model.LinkResult) model.Composite {
	var sum float64
	counts := map[model.Status]int{}
	for _, l := range links {
		sum += statusScore[l.Status]
		counts[l.Status]++
	}
	n := float64(len(links))
	score := 0.0
	if n > 0 {
		score = math.Round(sum/n*10) / 10
	}

	var interp string
	switch {
	case score >= 75:
		interp = "Critical — systemic stress across multiple chain links."
	case score >= 50:
		interp = "Warning — elevated stress across the tracked economy."
	case score >= 25:
		interp = "Elevated — isolated signs of stress."
	default:
		interp = "Normal — no significant stress detected."
	}

	return model.Composite{
		Score:          score,
		Scale:          "0-100, higher is worse",
		StatusCounts:   counts,
		Interpretation: interp,
	}
}

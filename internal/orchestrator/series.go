package orchestrator

import "github.com/derickschaefer/undertow/internal/model"

// seriesDef pairs a FRED series id with its static metadata.
type seriesDef struct {
	id   string
	meta model.SeriesMeta
}

// linkSeries is the closed set of FRED series tracked by this system,
// grouped by chain link. The "context" link is carried but not used by
// any chain-link formula; its series are fetched and stored for
// observability only.
var linkSeries = map[string][]seriesDef{
	"displacement": {
		{"LNU04032239", model.SeriesMeta{Name: "Unemployment Rate — Management, Business, Financial", Frequency: model.FreqMonthly, Unit: "percent"}},
		{"LNU04032237", model.SeriesMeta{Name: "Unemployment Rate — Professional and Related", Frequency: model.FreqMonthly, Unit: "percent"}},
		{"CES6054000001", model.SeriesMeta{Name: "Professional and Business Services Employment", Frequency: model.FreqMonthly, Unit: "thousands"}},
		{"UNRATE", model.SeriesMeta{Name: "Civilian Unemployment Rate", Frequency: model.FreqMonthly, Unit: "percent"}},
	},
	"spending": {
		{"PCEC96", model.SeriesMeta{Name: "Real Personal Consumption Expenditures", Frequency: model.FreqMonthly, Unit: "chained dollars"}},
		{"UMCSENT", model.SeriesMeta{Name: "Consumer Sentiment Index", Frequency: model.FreqMonthly, Unit: "index"}},
		{"RSAFS", model.SeriesMeta{Name: "Retail Sales", Frequency: model.FreqMonthly, Unit: "dollars"}},
	},
	"ghost_gdp": {
		{"OPHNFB", model.SeriesMeta{Name: "Nonfarm Business Sector Output Per Hour", Frequency: model.FreqQuarterly, Unit: "index"}},
		{"LES1252881600Q", model.SeriesMeta{Name: "Real Median Weekly Earnings", Frequency: model.FreqQuarterly, Unit: "dollars"}},
		{"M2V", model.SeriesMeta{Name: "Velocity of M2 Money Stock", Frequency: model.FreqQuarterly, Unit: "ratio"}},
	},
	"credit_stress": {
		{"BAMLH0A0HYM2", model.SeriesMeta{Name: "ICE BofA US High Yield Index Option-Adjusted Spread", Frequency: model.FreqDaily, Unit: "percent"}},
		{"BAMLH0A3HYC", model.SeriesMeta{Name: "ICE BofA CCC & Lower US High Yield Index Option-Adjusted Spread", Frequency: model.FreqDaily, Unit: "percent"}},
		{"DRCLACBS", model.SeriesMeta{Name: "Delinquency Rate on Consumer Loans", Frequency: model.FreqQuarterly, Unit: "percent"}},
	},
	"mortgage_stress": {
		{"DRSFRMACBS", model.SeriesMeta{Name: "Delinquency Rate on Single-Family Residential Mortgages", Frequency: model.FreqQuarterly, Unit: "percent"}},
	},
	"context": {
		{"BABATOTALSAUS", model.SeriesMeta{Name: "Total Business Applications", Frequency: model.FreqWeekly, Unit: "count"}},
		{"USCONS", model.SeriesMeta{Name: "All Employees, Construction", Frequency: model.FreqMonthly, Unit: "thousands"}},
		{"JTSJOL", model.SeriesMeta{Name: "Job Openings", Frequency: model.FreqMonthly, Unit: "thousands"}},
	},
}

// fetchJob is one (link, series) unit of work for the fan-out.
type fetchJob struct {
	link string
	def  seriesDef
}

// allFetchJobs flattens linkSeries into a stable-order job list.
func allFetchJobs() []fetchJob {
	order := []string{"displacement", "spending", "ghost_gdp", "credit_stress", "mortgage_stress", "context"}
	var jobs []fetchJob
	for _, link := range order {
		for _, def := range linkSeries[link] {
			jobs = append(jobs, fetchJob{link: link, def: def})
		}
	}
	return jobs
}

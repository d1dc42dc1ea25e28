// Package indeed fetches the tabular job-postings index dataset: one
// aggregate series and a handful of named sector series, both served as
// CSV from fixed URLs. Parsing is a deliberately naive comma-split,
// matching the upstream's guarantee that it never emits quoted commas.
package indeed

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/derickschaefer/undertow/internal/httpclient"
	"github.com/derickschaefer/undertow/internal/model"
)

const (
	maxTrim = 730

	aggregateSource = "Indeed Hiring Lab — job postings index"
	attribution     = "Data: Indeed Hiring Lab (postings index), https://www.hiringlab.org/"
)

// TargetSectors is the closed set of sector names this system tracks.
var TargetSectors = []string{
	"Software Development",
	"Marketing",
	"Media & Communications",
	"Banking & Finance",
	"Accounting",
}

// Client fetches the two fixed Indeed CSV endpoints.
type Client struct {
	aggregateURL string
	sectorsURL   string
	http         *httpclient.Client
}

// New builds a Client pointed at the given aggregate and sector CSV URLs.
func New(aggregateURL, sectorsURL string) *Client {
	return &Client{
		aggregateURL: aggregateURL,
		sectorsURL:   sectorsURL,
		http:         httpclient.New("indeed", httpclient.DefaultTimeout),
	}
}

// FetchAggregate retrieves the aggregate postings index series, trimmed
// to the last 730 observations. Fails with "empty-aggregate" if no
// usable rows remain.
func (c *Client) FetchAggregate(ctx context.Context) (model.Series, error) {
	body, err := c.http.Get(ctx, c.aggregateURL, nil)
	if err != nil {
		return model.Series{}, fmt.Errorf("indeed aggregate: %w", err)
	}

	rows, header, err := parseCSV(body)
	if err != nil {
		return model.Series{}, fmt.Errorf("indeed aggregate: %w", err)
	}

	dateIdx := header["date"]
	saIdx, hasSA := header["indeed_job_postings_index_SA"]
	rawIdx, hasRaw := header["indeed_job_postings_index"]

	obs := make([]model.Observation, 0, len(rows))
	for _, row := range rows {
		date := row[dateIdx]
		var valStr string
		if hasSA && strings.TrimSpace(row[saIdx]) != "" {
			valStr = row[saIdx]
		} else if hasRaw {
			valStr = row[rawIdx]
		}
		v, ok := parseFinite(valStr)
		if !ok {
			continue
		}
		obs = append(obs, model.Observation{Date: date, Value: v})
	}

	obs = trim(obs, maxTrim)
	if len(obs) == 0 {
		return model.Series{}, fmt.Errorf("indeed aggregate: empty-aggregate")
	}

	meta := model.SeriesMeta{Name: "Indeed Job Postings Index", Frequency: model.FreqDaily, Unit: "index"}
	return model.NewSeries(meta, "indeed_aggregate", obs), nil
}

// FetchSectors retrieves the per-sector postings index series for the
// configured target sectors, filtered to variable == "total postings",
// each trimmed to the last 730 observations. Fails with "empty-sectors"
// if no sector ends up with any usable rows.
func (c *Client) FetchSectors(ctx context.Context) (map[string]model.Series, error) {
	body, err := c.http.Get(ctx, c.sectorsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("indeed sectors: %w", err)
	}

	rows, header, err := parseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("indeed sectors: %w", err)
	}

	dateIdx := header["date"]
	nameIdx := header["display_name"]
	varIdx := header["variable"]
	valIdx := header["indeed_job_postings_index"]

	wanted := make(map[string]bool, len(TargetSectors))
	for _, s := range TargetSectors {
		wanted[s] = true
	}

	byName := map[string][]model.Observation{}
	for _, row := range rows {
		name := row[nameIdx]
		if !wanted[name] {
			continue
		}
		if row[varIdx] != "total postings" {
			continue
		}
		v, ok := parseFinite(row[valIdx])
		if !ok {
			continue
		}
		byName[name] = append(byName[name], model.Observation{Date: row[dateIdx], Value: v})
	}

	out := make(map[string]model.Series, len(byName))
	for name, obs := range byName {
		obs = trim(obs, maxTrim)
		if len(obs) == 0 {
			continue
		}
		meta := model.SeriesMeta{Name: name, Frequency: model.FreqDaily, Unit: "index"}
		out[name] = model.NewSeries(meta, name, obs)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("indeed sectors: empty-sectors")
	}
	return out, nil
}

// Attribution returns the fixed source/attribution strings for the
// IndeedRaw snapshot.
func (c *Client) Attribution() (source, attrib string) {
	return aggregateSource, attribution
}

// parseCSV does a naive header-indexed comma split; rows whose column
// count differs from the header are silently skipped.
func parseCSV(body []byte) ([][]string, map[string]int, error) {
	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, nil, fmt.Errorf("empty body")
	}

	headerCols := strings.Split(lines[0], ",")
	header := make(map[string]int, len(headerCols))
	for i, col := range headerCols {
		header[strings.TrimSpace(col)] = i
	}

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) != len(headerCols) {
			continue
		}
		rows = append(rows, cols)
	}
	return rows, header, nil
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func trim(obs []model.Observation, max int) []model.Observation {
	if len(obs) <= max {
		return obs
	}
	return obs[len(obs)-max:]
}

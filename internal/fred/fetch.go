package fred

import (
	"context"
	"fmt"
	"math"
	"net/url"

	"github.com/derickschaefer/undertow/internal/model"
	"github.com/derickschaefer/undertow/internal/util"
)

// rawObservations is the shape of a FRED series/observations response.
type rawObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FetchSeries fetches one FRED series from observationStart to present,
// dropping missing ("."), empty, and non-finite values. It fails with an
// "empty-series" error if no usable observations remain.
func (c *Client) FetchSeries(ctx context.Context, seriesID, observationStart string) ([]model.Observation, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("observation_start", observationStart)
	params.Set("sort_order", "asc")

	var raw rawObservations
	if err := c.get(ctx, "series/observations", params, &raw); err != nil {
		return nil, fmt.Errorf("fred %s: %w", seriesID, err)
	}

	obs := make([]model.Observation, 0, len(raw.Observations))
	for _, o := range raw.Observations {
		if o.Value == "" || o.Value == "." {
			continue
		}
		v := util.ParseObsValue(o.Value)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		obs = append(obs, model.Observation{Date: o.Date, Value: v})
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("fred %s: empty-series", seriesID)
	}
	return obs, nil
}

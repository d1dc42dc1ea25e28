// Package orchestrator drives a single refresh: it acquires the refresh
// lock, fans out the configured upstream fetches, resolves partial
// failure via fallback to the previously published snapshot, runs the
// computation pipeline, and publishes the result atomically.
package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/undertow/internal/compute"
	"github.com/derickschaefer/undertow/internal/fred"
	"github.com/derickschaefer/undertow/internal/indeed"
	"github.com/derickschaefer/undertow/internal/model"
	"github.com/derickschaefer/undertow/internal/store"
	"github.com/derickschaefer/undertow/internal/util"
)

// Config holds the orchestrator's tunables, distinct from the full
// process configuration so it can be constructed directly in tests.
type Config struct {
	Concurrency int // max parallel series fetches; default 8
}

// Orchestrator runs refreshes against a store, a FRED client, and an
// Indeed client.
type Orchestrator struct {
	store  *store.Store
	fred   *fred.Client
	indeed *indeed.Client
	cfg    Config
}

// New builds an Orchestrator.
func New(s *store.Store, fredClient *fred.Client, indeedClient *indeed.Client, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Orchestrator{store: s, fred: fredClient, indeed: indeedClient, cfg: cfg}
}

// Result summarizes the outcome of a single Run invocation.
type Result struct {
	OK            bool
	Skipped       bool
	Reason        string
	Error         string
	Version       string
	GeneratedAt   string
	RunID         string
	WarningsCount int
	Warnings      []string
}

// Run executes a single refresh with the given trigger ("cron" or
// "manual"). It always appends a run log entry; metadata other than
// last_attempt is untouched when the run is skipped due to lock
// contention.
func (o *Orchestrator) Run(ctx context.Context, trigger string) Result {
	runID := newRunID()
	start := time.Now()

	_ = o.store.MarkAttempt(start)

	if err := o.store.AcquireLock(runID); err != nil {
		res := Result{Skipped: true, Reason: err.Error(), RunID: runID}
		_ = o.store.AppendRunLog(model.RunLogEntry{
			Timestamp: start.UTC(),
			Skipped:   true,
			Reason:    err.Error(),
			Trigger:   trigger,
			RunID:     runID,
		})
		return res
	}
	defer func() {
		if err := o.store.ReleaseLock(runID); err != nil {
			slog.Warn("releasing refresh lock", "run_id", runID, "error", err)
		}
	}()

	res := o.runLocked(ctx, trigger, runID, start)

	duration := time.Since(start).Milliseconds()
	entry := model.RunLogEntry{
		Timestamp:     start.UTC(),
		OK:            res.OK,
		Error:         res.Error,
		Trigger:       trigger,
		RunID:         runID,
		DurationMs:    duration,
		Version:       res.Version,
		WarningsCount: res.WarningsCount,
	}
	if err := o.store.AppendRunLog(entry); err != nil {
		slog.Warn("appending run log", "run_id", runID, "error", err)
	}
	return res
}

func (o *Orchestrator) runLocked(ctx context.Context, trigger, runID string, start time.Time) Result {
	duration := func() int64 { return time.Since(start).Milliseconds() }

	fail := func(err error) Result {
		slog.Warn("refresh failed", "run_id", runID, "error", err)
		if mErr := o.store.MarkFailure(err.Error(), duration()); mErr != nil {
			slog.Warn("marking failure metadata", "error", mErr)
		}
		return Result{Error: err.Error(), RunID: runID}
	}

	// Step 1: observation_start = today minus 5 years, UTC, date-only.
	observationStart := util.FormatDate(time.Now().UTC().AddDate(-5, 0, 0))

	// Step 2: read previous snapshots for fallback.
	prevFred, _, err := o.store.ReadLatestFredRaw()
	if err != nil {
		return fail(fmt.Errorf("reading previous fred_raw: %w", err))
	}
	prevIndeed, hasPrevIndeed, err := o.store.ReadLatestIndeedRaw()
	if err != nil {
		return fail(fmt.Errorf("reading previous indeed_raw: %w", err))
	}

	// Steps 3-5: fan out series fetches, resolve fallback, collect
	// critical misses.
	fredRaw, fallbackCount, warnings, criticalMisses := o.fetchAllSeries(ctx, observationStart, prevFred)
	if len(criticalMisses) > 0 {
		merr := &util.MultiError{}
		for _, m := range criticalMisses {
			merr.Add(errors.New(m))
		}
		return fail(fmt.Errorf("missing series with no fallback: %w", merr.Err()))
	}

	// Step 6: fetch Indeed with fallback.
	indeedRaw, indeedStale, err := o.fetchIndeed(ctx, hasPrevIndeed, prevIndeed)
	if err != nil {
		return fail(err)
	}
	if indeedStale {
		warnings = append(warnings, "Indeed fallback to previous snapshot")
	}

	// Step 7: compute derived indicators, link results, composite.
	links := compute.ChainLinks(fredRaw)
	composite := compute.BuildComposite(links)
	derived := map[string]model.DerivedIndicator{
		"ghost_gdp":             compute.GhostGDP(fredRaw),
		"displacement_velocity": compute.DisplacementVelocity(fredRaw),
	}

	// Step 8: assemble the snapshot.
	generatedAt := time.Now().UTC().Format(time.RFC3339)
	version := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), runID[:8])

	fredSource := model.SourceFresh
	if fallbackCount > 0 {
		fredSource = model.SourceStale
	}
	indeedSource := model.SourceFresh
	if indeedStale {
		indeedSource = model.SourceStale
	}

	indicators := model.Indicators{
		GeneratedAt:       generatedAt,
		FredFetchedAt:     fredRaw.FetchedAt,
		IndeedFetchedAt:   indeedRaw.FetchedAt,
		Composite:         composite,
		DerivedIndicators: derived,
		LinkResults:       links,
		Pipeline: model.PipelineMeta{
			Version:        version,
			Trigger:        trigger,
			RunID:          runID,
			FallbackCounts: model.FallbackCounts{FredSeries: fallbackCount},
			Warnings:       warnings,
		},
	}
	indicators.Pipeline.SourceStatus.Fred = fredSource
	indicators.Pipeline.SourceStatus.Indeed = indeedSource

	// Step 9: publish.
	if err := o.store.Publish(version, fredRaw, indeedRaw, indicators); err != nil {
		return fail(fmt.Errorf("publishing: %w", err))
	}

	// Step 10: success metadata.
	if err := o.store.MarkSuccess(generatedAt, duration()); err != nil {
		slog.Warn("marking success metadata", "error", err)
	}

	return Result{
		OK:            true,
		Version:       version,
		GeneratedAt:   generatedAt,
		RunID:         runID,
		WarningsCount: len(warnings),
		Warnings:      warnings,
	}
}

// fetchAllSeries fans out the configured series fetches with bounded
// concurrency, attaching successes to a new FredRaw and falling back to
// the previous snapshot's series on failure. Series with neither a fresh
// fetch nor a fallback are returned as critical misses.
func (o *Orchestrator) fetchAllSeries(ctx context.Context, observationStart string, prev model.FredRaw) (model.FredRaw, int, []string, []string) {
	jobs := allFetchJobs()
	sem := make(chan struct{}, o.cfg.Concurrency)
	var wg sync.WaitGroup

	type outcome struct {
		job fetchJob
		obs []model.Observation
		err error
	}
	results := make([]outcome, len(jobs))

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job fetchJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			obs, err := o.fred.FetchSeries(ctx, job.def.id, observationStart)
			results[i] = outcome{job: job, obs: obs, err: err}
		}(i, job)
	}
	wg.Wait()

	fredRaw := model.FredRaw{
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
		Links:     map[string]map[string]model.Series{},
	}
	var (
		fallbackCount  int
		warnings       []string
		criticalMisses []string
	)

	for _, r := range results {
		link := r.job.link
		id := r.job.def.id
		if fredRaw.Links[link] == nil {
			fredRaw.Links[link] = map[string]model.Series{}
		}

		if r.err == nil {
			fredRaw.Links[link][id] = model.NewSeries(r.job.def.meta, id, r.obs)
			continue
		}

		slog.Warn("fred series fetch failed", "series", id, "error", r.err)
		if prevSeries, ok := fallbackSeries(prev, link, id); ok {
			fredRaw.Links[link][id] = prevSeries
			fallbackCount++
			warnings = append(warnings, fmt.Sprintf("FRED %s fallback to previous snapshot", id))
			continue
		}
		criticalMisses = append(criticalMisses, fmt.Sprintf("%s: %v", id, r.err))
	}

	return fredRaw, fallbackCount, warnings, criticalMisses
}

func fallbackSeries(prev model.FredRaw, link, id string) (model.Series, bool) {
	links, ok := prev.Links[link]
	if !ok {
		return model.Series{}, false
	}
	s, ok := links[id]
	return s, ok
}

// fetchIndeed runs the aggregate and sector fetches concurrently as a
// pair via errgroup, falling back to the previous IndeedRaw snapshot on
// either failure.
func (o *Orchestrator) fetchIndeed(ctx context.Context, hasPrev bool, prev model.IndeedRaw) (model.IndeedRaw, bool, error) {
	var (
		aggregate model.Series
		sectors   map[string]model.Series
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aggregate, err = o.indeed.FetchAggregate(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sectors, err = o.indeed.FetchSectors(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if hasPrev {
			slog.Warn("indeed fetch failed, falling back to previous snapshot", "error", err)
			return prev, true, nil
		}
		return model.IndeedRaw{}, false, fmt.Errorf("indeed: %w", err)
	}

	source, attribution := o.indeed.Attribution()
	return model.IndeedRaw{
		FetchedAt:   time.Now().UTC().Format(time.RFC3339),
		Source:      source,
		Attribution: attribution,
		Aggregate:   aggregate,
		Sectors:     sectors,
	}, false, nil
}

func newRunID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to
		// a timestamp-derived id so the run can still proceed.
		ts := time.Now().UnixNano()
		for i := range b {
			b[i] = byte(ts >> (uint(i) * 4))
		}
	}
	return hex.EncodeToString(b)
}

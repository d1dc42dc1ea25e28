// Package app wires configuration into the runtime collaborators that
// the CLI commands operate on: the bbolt-backed store, the FRED and
// Indeed clients, the orchestrator, the scheduler, and the HTTP API
// server.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/derickschaefer/undertow/internal/api"
	"github.com/derickschaefer/undertow/internal/config"
	"github.com/derickschaefer/undertow/internal/fred"
	"github.com/derickschaefer/undertow/internal/indeed"
	"github.com/derickschaefer/undertow/internal/orchestrator"
	"github.com/derickschaefer/undertow/internal/scheduler"
	"github.com/derickschaefer/undertow/internal/store"
)

// Deps holds every runtime collaborator a command's RunE needs. Close
// must be called before the process exits to flush the store.
type Deps struct {
	Config *config.Config
	Store  *store.Store
	Fred   *fred.Client
	Indeed *indeed.Client
	Orch   *orchestrator.Orchestrator
}

// New opens the store and constructs every collaborator from cfg.
func New(cfg *config.Config) (*Deps, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	fredClient := fred.New(cfg.APIKey, cfg.FredBaseURL, cfg.Rate, cfg.Debug)
	indeedClient := indeed.New(cfg.IndeedAggregateURL, cfg.IndeedSectorsURL)

	orch := orchestrator.New(s, fredClient, indeedClient, orchestrator.Config{
		Concurrency: cfg.Concurrency,
	})

	return &Deps{
		Config: cfg,
		Store:  s,
		Fred:   fredClient,
		Indeed: indeedClient,
		Orch:   orch,
	}, nil
}

// Close releases the store's file handle.
func (d *Deps) Close() error {
	return d.Store.Close()
}

// Server builds the HTTP API server bound to d's store and orchestrator.
func (d *Deps) Server() *api.Server {
	return api.New(d.Store, d.Orch, d.Config.RefreshToken, d.Config.ListenAddr)
}

// Scheduler builds the cron scheduler bound to d's orchestrator.
func (d *Deps) Scheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(d.Orch, d.Config.CronSchedule)
}

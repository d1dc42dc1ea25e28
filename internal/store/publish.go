package store

import (
	"encoding/json"
	"fmt"

	"github.com/derickschaefer/undertow/internal/model"
)

func versionKey(version, suffix string) string {
	return fmt.Sprintf("snap:%s:%s", version, suffix)
}

// Publish implements the three-phase atomic publication protocol: write
// all three per-version payloads, then flip the latest:version pointer,
// then update the legacy direct keys. A reader racing the pointer flip
// always sees a fully-written, internally consistent version.
func (s *Store) Publish(version string, fredRaw model.FredRaw, indeedRaw model.IndeedRaw, indicators model.Indicators) error {
	indicatorsJSON, err := json.Marshal(indicators)
	if err != nil {
		return fmt.Errorf("encoding indicators: %w", err)
	}
	fredJSON, err := json.Marshal(fredRaw)
	if err != nil {
		return fmt.Errorf("encoding fred_raw: %w", err)
	}
	indeedJSON, err := json.Marshal(indeedRaw)
	if err != nil {
		return fmt.Errorf("encoding indeed_raw: %w", err)
	}

	if err := s.PutBatch(map[string][]byte{
		versionKey(version, "indicators"): indicatorsJSON,
		versionKey(version, "fred_raw"):   fredJSON,
		versionKey(version, "indeed_raw"): indeedJSON,
	}); err != nil {
		return fmt.Errorf("writing version payloads: %w", err)
	}

	if err := s.Put("latest:version", []byte(version)); err != nil {
		return fmt.Errorf("flipping latest:version: %w", err)
	}

	if err := s.PutBatch(map[string][]byte{
		"latest:indicators": indicatorsJSON,
		"latest:fred_raw":   fredJSON,
		"latest:indeed_raw": indeedJSON,
	}); err != nil {
		return fmt.Errorf("updating legacy keys: %w", err)
	}
	return nil
}

// ReadLatestVersion returns the current publication pointer, or "" if
// none has ever been published.
func (s *Store) ReadLatestVersion() (string, error) {
	v, ok, err := s.Get("latest:version")
	if err != nil || !ok {
		return "", err
	}
	return string(v), nil
}

// ReadLatestIndicators resolves the published Indicators snapshot:
// pointer first, falling back to the legacy direct key.
func (s *Store) ReadLatestIndicators() (model.Indicators, bool, error) {
	var out model.Indicators
	ok, err := s.readLatest("indicators", &out)
	return out, ok, err
}

// ReadLatestFredRaw resolves the published FredRaw snapshot.
func (s *Store) ReadLatestFredRaw() (model.FredRaw, bool, error) {
	var out model.FredRaw
	ok, err := s.readLatest("fred_raw", &out)
	return out, ok, err
}

// ReadLatestIndeedRaw resolves the published IndeedRaw snapshot.
func (s *Store) ReadLatestIndeedRaw() (model.IndeedRaw, bool, error) {
	var out model.IndeedRaw
	ok, err := s.readLatest("indeed_raw", &out)
	return out, ok, err
}

// readLatest implements the pointer-first, legacy-key-fallback read
// protocol shared by every snapshot kind.
func (s *Store) readLatest(kind string, out interface{}) (bool, error) {
	version, err := s.ReadLatestVersion()
	if err != nil {
		return false, err
	}
	if version != "" {
		ok, err := s.GetJSON(versionKey(version, kind), out)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return s.GetJSON("latest:"+kind, out)
}

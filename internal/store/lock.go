package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/derickschaefer/undertow/internal/model"
)

const (
	lockKey = "lock:refresh"
	lockTTL = 15 * time.Minute
)

// AcquireLock attempts to take the refresh lock for owner. Fails if a
// non-expired lock already exists. After writing, re-reads the lock and
// verifies ownership, defending against eventual consistency in the
// underlying store.
func (s *Store) AcquireLock(owner string) error {
	now := time.Now()

	var existing model.RefreshLock
	ok, err := s.GetJSON(lockKey, &existing)
	if err != nil {
		return fmt.Errorf("reading refresh lock: %w", err)
	}
	if ok && existing.ExpiresAtMs > now.UnixMilli() {
		return fmt.Errorf("refresh locked by %s", existing.Owner)
	}

	lock := model.RefreshLock{
		Owner:       owner,
		AcquiredAt:  now.UTC().Format(time.RFC3339),
		ExpiresAtMs: now.Add(lockTTL).UnixMilli(),
	}
	b, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("encoding refresh lock: %w", err)
	}
	if err := s.Put(lockKey, b); err != nil {
		return fmt.Errorf("writing refresh lock: %w", err)
	}

	var verify model.RefreshLock
	if _, err := s.GetJSON(lockKey, &verify); err != nil {
		return fmt.Errorf("verifying refresh lock: %w", err)
	}
	if verify.Owner != owner {
		return fmt.Errorf("lock verification failed")
	}
	return nil
}

// ReleaseLock deletes the refresh lock if owner currently holds it.
func (s *Store) ReleaseLock(owner string) error {
	var lock model.RefreshLock
	ok, err := s.GetJSON(lockKey, &lock)
	if err != nil {
		return fmt.Errorf("reading refresh lock: %w", err)
	}
	if !ok || lock.Owner != owner {
		return nil
	}
	return s.Delete(lockKey)
}

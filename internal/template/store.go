package template

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// ErrNoTemplate is returned when no template can be resolved at all.
var ErrNoTemplate = errors.New("no template available")

// Repository persists at most one template per name.
type Repository interface {
	// Get returns the persisted template, or nil when none exists.
	Get(ctx context.Context, name string) (*Template, error)

	// CompareAndSwap upserts t under t.Name only if the stored version is
	// lower than or equal to t.Version. It reports whether the write happened.
	// An update keeps the stored active flag; t.Active only applies on insert.
	CompareAndSwap(ctx context.Context, t *Template) (bool, error)
}

// Archive keeps every synced template version for later diffing.
type Archive interface {
	Put(ctx context.Context, t *Template) error
	Get(ctx context.Context, name, version string) (*Template, error)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithArchive archives every successful sync.
func WithArchive(a Archive) StoreOption {
	return func(s *Store) { s.archive = a }
}

// WithBuiltinSource overrides the built-in template, mainly for tests.
func WithBuiltinSource(fn func() (*Template, error)) StoreOption {
	return func(s *Store) { s.builtin = fn }
}

// WithSyncTimeout bounds each background sync.
func WithSyncTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.syncTimeout = d }
}

// Store resolves effective templates and keeps persisted copies moving forward.
type Store struct {
	repo        Repository
	archive     Archive
	builtin     func() (*Template, error)
	log         logr.Logger
	syncTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewStore creates a Store over repo.
func NewStore(repo Repository, log logr.Logger, opts ...StoreOption) *Store {
	s := &Store{
		repo:        repo,
		builtin:     Builtin,
		log:         log.WithName("templates"),
		syncTimeout: 15 * time.Second,
		inflight:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the template a new deployment should use for name.
//
// Without a name, or without an active persisted copy, the built-in template
// is returned. Otherwise the higher of the persisted and built-in versions
// wins, with ties going to the persisted copy. When the built-in copy wins
// for its own name, a background sync brings the persisted copy forward; a
// failed sync is logged and never reaches the caller.
func (s *Store) Resolve(ctx context.Context, name string) (*Template, Source, error) {
	builtin, err := s.builtin()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNoTemplate, err)
	}
	if name == "" {
		return builtin, SourceBuiltin, nil
	}

	persisted, err := s.repo.Get(ctx, name)
	if err != nil {
		s.log.Error(err, "failed to load persisted template, using built-in", "template", name)
		return builtin, SourceBuiltin, nil
	}

	if persisted != nil && persisted.Active && persisted.Name != builtin.Name {
		return persisted, SourceDB, nil
	}
	if name != builtin.Name {
		// Only the built-in template's own name is synced from the binary.
		return builtin, SourceBuiltin, nil
	}

	if persisted != nil && persisted.Active && CompareVersions(persisted.Version, builtin.Version) >= 0 {
		return persisted, SourceDB, nil
	}

	if persisted == nil || CompareVersions(builtin.Version, persisted.Version) > 0 {
		s.scheduleSync(ctx, builtin)
	}
	return builtin, SourceBuiltin, nil
}

// Persisted returns the persisted template for name, or nil.
func (s *Store) Persisted(ctx context.Context, name string) (*Template, error) {
	return s.repo.Get(ctx, name)
}

// Sync upserts t as the persisted copy of name. The write only happens when
// the stored version is not higher than t's, so concurrent syncs converge on
// the highest version. It reports whether the stored copy changed.
func (s *Store) Sync(ctx context.Context, name string, t *Template) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	snapshot := t.Clone()
	snapshot.Name = name
	snapshot.Active = true

	swapped, err := s.repo.CompareAndSwap(ctx, snapshot)
	if err != nil {
		return false, fmt.Errorf("failed to sync template %s to %s: %w", name, snapshot.Version, err)
	}
	if !swapped {
		s.log.V(1).Info("persisted template is newer, sync skipped", "template", name, "version", snapshot.Version)
		return false, nil
	}
	s.log.Info("template synced", "template", name, "version", snapshot.Version)

	if s.archive != nil {
		if err := s.archive.Put(ctx, snapshot); err != nil {
			s.log.Error(err, "failed to archive template snapshot", "template", name, "version", snapshot.Version)
		}
	}
	return true, nil
}

// Snapshot returns the template name at an exact version, looking at the
// built-in and persisted copies first and the archive last.
func (s *Store) Snapshot(ctx context.Context, name, version string) (*Template, error) {
	if builtin, err := s.builtin(); err == nil && builtin.Name == name && CompareVersions(builtin.Version, version) == 0 {
		return builtin, nil
	}
	if persisted, err := s.repo.Get(ctx, name); err == nil && persisted != nil && CompareVersions(persisted.Version, version) == 0 {
		return persisted, nil
	}
	if s.archive == nil {
		return nil, fmt.Errorf("template %s@%s not found and no archive configured", name, version)
	}
	return s.archive.Get(ctx, name, version)
}

// Wait blocks until background syncs have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) scheduleSync(ctx context.Context, t *Template) {
	key := t.Name + "@" + t.Version

	s.mu.Lock()
	if s.inflight[key] {
		s.mu.Unlock()
		return
	}
	s.inflight[key] = true
	s.mu.Unlock()

	// The caller's deadline must not cut the sync short.
	syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.syncTimeout)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
		}()

		if _, err := s.Sync(syncCtx, t.Name, t); err != nil {
			s.log.Error(err, "background template sync failed", "template", t.Name, "version", t.Version)
		}
	}()
}

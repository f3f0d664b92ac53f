// Package artifacts stores per-request derived files (highlighted PDFs)
// on local disk. Every request gets its own ULID-named directory, so
// concurrent requests can never observe or overwrite each other's
// artifacts. Old directories are swept after a TTL.
package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// URLPrefix is the HTTP path artifacts are served under.
const URLPrefix = "/static"

// Store is a disk-backed artifact store.
type Store struct {
	dir string
	ttl time.Duration
	log *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the store directory if needed.
func New(dir string, ttl time.Duration, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir, ttl: ttl, log: log}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// NewID returns a fresh request-scoped artifact ID.
func (s *Store) NewID() string { return generateULID() }

// Put writes data under the given artifact ID and returns the URL path
// it will be served at. IDs come from NewID, so names never collide.
// Names are plain file names; anything carrying a path separator is
// rejected rather than silently rewritten.
func (s *Store) Put(id, name string, data []byte) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", URLPrefix, id, name), nil
}

// Start launches the TTL sweeper.
func (s *Store) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Stop halts the sweeper.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Sweep removes artifact directories older than the TTL.
func (s *Store) Sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("artifact sweep failed", "error", err)
		return
	}
	cutoff := time.Now().Add(-s.ttl)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			s.log.Warn("artifact removal failed", "path", path, "error", err)
		}
	}
}

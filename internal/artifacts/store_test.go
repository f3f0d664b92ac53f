package artifacts

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := New(t.TempDir(), ttl, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPutWritesFileAndReturnsURL(t *testing.T) {
	s := newTestStore(t, time.Hour)
	id := s.NewID()

	url, err := s.Put(id, "highlighted.pdf", []byte("%PDF-1.4 data"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := URLPrefix + "/" + id + "/highlighted.pdf"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), id, "highlighted.pdf"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "%PDF-1.4 data" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestPutRejectsBadNames(t *testing.T) {
	s := newTestStore(t, time.Hour)
	bad := []string{
		"",
		".",
		"..",
		"sub/dir/file.pdf",
		"../escape.pdf",
		`win\style.pdf`,
	}
	for _, name := range bad {
		if _, err := s.Put(s.NewID(), name, []byte("x")); err == nil {
			t.Errorf("Put(%q) should fail", name)
		}
	}
}

func TestNewIDUnique(t *testing.T) {
	s := newTestStore(t, time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := s.NewID()
		if len(id) != 26 {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSweepRemovesExpiredDirs(t *testing.T) {
	s := newTestStore(t, time.Minute)

	oldID := s.NewID()
	if _, err := s.Put(oldID, "a.pdf", []byte("x")); err != nil {
		t.Fatal(err)
	}
	freshID := s.NewID()
	if _, err := s.Put(freshID, "b.pdf", []byte("x")); err != nil {
		t.Fatal(err)
	}

	// Age the first directory past the TTL.
	past := time.Now().Add(-2 * time.Minute)
	if err := os.Chtimes(filepath.Join(s.Dir(), oldID), past, past); err != nil {
		t.Fatal(err)
	}

	s.Sweep()

	if _, err := os.Stat(filepath.Join(s.Dir(), oldID)); !os.IsNotExist(err) {
		t.Error("expired artifact dir survived the sweep")
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), freshID)); err != nil {
		t.Errorf("fresh artifact dir removed: %v", err)
	}
}

func TestSweepIgnoresPlainFiles(t *testing.T) {
	s := newTestStore(t, time.Minute)
	path := filepath.Join(s.Dir(), "stray.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	s.Sweep()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("sweep must only remove directories: %v", err)
	}
}

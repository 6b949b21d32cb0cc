package backup

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/triedb/lib/trie"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// trieSource serializes a trie under a mutex, like the engine does
type trieSource struct {
	mu sync.Mutex
	t  *trie.PrefixTrie
}

func (s *trieSource) Snapshot(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.Save(w)
}

func (s *trieSource) set(t *testing.T, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.t.Insert([]byte(key), []byte(value)); err != nil {
		t.Fatalf("Insert(%q) error = %v", key, err)
	}
}

// memoryRemote keeps the uploaded snapshot in memory
type memoryRemote struct {
	mu        sync.Mutex
	data      []byte
	uploads   int
	downloads int
	closed    bool
}

func (r *memoryRemote) Download(_ context.Context, path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads++
	if r.data == nil {
		return false, nil
	}
	return true, os.WriteFile(path, r.data, 0o644)
}

func (r *memoryRemote) Upload(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = data
	r.uploads++
	return nil
}

func (r *memoryRemote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newSource() *trieSource {
	return &trieSource{t: trie.New(trie.MustAlphabet(trie.DefaultAlphabet))}
}

func mustLookup(t *testing.T, tr *trie.PrefixTrie, key, want string) {
	t.Helper()
	got, ok := tr.Lookup([]byte(key))
	if !ok {
		t.Fatalf("Lookup(%q) not found", key)
	}
	if string(got) != want {
		t.Errorf("Lookup(%q) = %q, want %q", key, got, want)
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRestartRestoresSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.trie")
	src := newSource()
	src.set(t, "cat", "meow")
	src.set(t, "car", "vroom")

	m := NewManager(Config{Path: path}, src)
	if err := m.Backup(context.Background()); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	// discard the in-memory trie
	src = nil
	restored := NewManager(Config{Path: path}, nil).Restore(context.Background())
	if restored.Len() != 2 {
		t.Errorf("Len() = %d, want 2", restored.Len())
	}
	mustLookup(t, restored, "cat", "meow")
	mustLookup(t, restored, "car", "vroom")
}

func TestRestoreMissingSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.trie")
	restored := NewManager(Config{Path: path}, nil).Restore(context.Background())
	if restored.Len() != 0 {
		t.Errorf("Len() = %d, want 0", restored.Len())
	}
	if !restored.Alphabet().Equal(trie.MustAlphabet(trie.DefaultAlphabet)) {
		t.Errorf("Alphabet() = %q, want default", restored.Alphabet())
	}
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Garbage", []byte("definitely not a snapshot")},
		{"Truncated", func() []byte {
			src := newSource()
			src.set(t, "abc", "value")
			var buf bytes.Buffer
			if err := src.Snapshot(&buf); err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			return buf.Bytes()[:buf.Len()-3]
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.trie")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			alphabet := trie.MustAlphabet("ab")
			restored := NewManager(Config{Path: path, Alphabet: alphabet}, nil).Restore(context.Background())
			if restored.Len() != 0 {
				t.Errorf("Len() = %d, want 0", restored.Len())
			}
			if !restored.Alphabet().Equal(alphabet) {
				t.Errorf("Alphabet() = %q, want %q", restored.Alphabet(), alphabet)
			}
		})
	}
}

func TestRestoreAlphabetMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.trie")
	src := newSource()
	src.set(t, "ab", "1")
	src.set(t, "abc", "2")
	src.set(t, "xyz", "3")
	if err := NewManager(Config{Path: path}, src).Backup(context.Background()); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	alphabet := trie.MustAlphabet("abc")
	restored := NewManager(Config{Path: path, Alphabet: alphabet}, nil).Restore(context.Background())
	if !restored.Alphabet().Equal(alphabet) {
		t.Errorf("Alphabet() = %q, want %q", restored.Alphabet(), alphabet)
	}
	if restored.Len() != 2 {
		t.Errorf("Len() = %d, want 2", restored.Len())
	}
	mustLookup(t, restored, "ab", "1")
	mustLookup(t, restored, "abc", "2")
}

func TestBackupReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.trie")
	src := newSource()
	m := NewManager(Config{Path: path}, src)

	for i, key := range []string{"a", "b", "c"} {
		src.set(t, key, key)
		if err := m.Backup(context.Background()); err != nil {
			t.Fatalf("Backup() #%d error = %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "data.trie" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want only data.trie", names)
	}

	restored := NewManager(Config{Path: path}, nil).Restore(context.Background())
	if restored.Len() != 3 {
		t.Errorf("Len() = %d, want 3", restored.Len())
	}
}

func TestBackupCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "data.trie")
	src := newSource()
	src.set(t, "a", "1")
	if err := NewManager(Config{Path: path}, src).Backup(context.Background()); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestBackupWithoutSource(t *testing.T) {
	m := NewManager(Config{Path: filepath.Join(t.TempDir(), "data.trie")}, nil)
	if err := m.Backup(context.Background()); err == nil {
		t.Error("Backup() without source expected error")
	}
}

func TestBackupFailureKeepsPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.trie")
	src := newSource()
	src.set(t, "cat", "meow")
	m := NewManager(Config{Path: path}, src)
	if err := m.Backup(context.Background()); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	failing := NewManager(Config{Path: path}, failingSource{})
	if err := failing.Backup(context.Background()); err == nil {
		t.Fatal("Backup() with failing source expected error")
	}

	restored := NewManager(Config{Path: path}, nil).Restore(context.Background())
	mustLookup(t, restored, "cat", "meow")
}

type failingSource struct{}

func (failingSource) Snapshot(w io.Writer) error {
	_, _ = w.Write([]byte("TRIEDB"))
	return os.ErrClosed
}

func TestPeriodicBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.trie")
	src := newSource()
	src.set(t, "cat", "meow")

	m := NewManager(Config{Path: path, Frequency: 20 * time.Millisecond}, src)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no snapshot written by the periodic task")
		}
		time.Sleep(10 * time.Millisecond)
	}

	restored := NewManager(Config{Path: path}, nil).Restore(context.Background())
	mustLookup(t, restored, "cat", "meow")
}

func TestDisabledFrequencyIsCancellable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.trie")
	m := NewManager(Config{Path: path}, newSource())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Run() returned before cancellation")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("no snapshot expected without frequency, stat error = %v", err)
	}
}

func TestCloseFinalFlush(t *testing.T) {
	tests := []struct {
		name       string
		finalFlush bool
		wantFile   bool
	}{
		{"WithFinalFlush", true, true},
		{"WithoutFinalFlush", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.trie")
			src := newSource()
			src.set(t, "cat", "meow")

			m := NewManager(Config{Path: path, FinalFlush: tt.finalFlush}, src)
			if err := m.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if err := m.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			// second close is a no-op
			if err := m.Close(); err != nil {
				t.Fatalf("second Close() error = %v", err)
			}

			_, err := os.Stat(path)
			if gotFile := err == nil; gotFile != tt.wantFile {
				t.Errorf("snapshot written = %v, want %v", gotFile, tt.wantFile)
			}
			if err := m.Start(context.Background()); err == nil {
				t.Error("Start() after Close() expected error")
			}
		})
	}
}

func TestRemoteMirror(t *testing.T) {
	remote := &memoryRemote{}
	src := newSource()
	src.set(t, "cat", "meow")

	first := filepath.Join(t.TempDir(), "data.trie")
	m := NewManager(Config{Path: first, Remote: remote}, src)
	if err := m.Backup(context.Background()); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if remote.uploads != 1 || !remote.closed {
		t.Fatalf("uploads = %d, closed = %v, want 1 upload and closed remote", remote.uploads, remote.closed)
	}

	// a fresh machine without the local file restores from the remote
	second := filepath.Join(t.TempDir(), "data.trie")
	restored := NewManager(Config{Path: second, Remote: remote}, nil).Restore(context.Background())
	if remote.downloads != 1 {
		t.Errorf("downloads = %d, want 1", remote.downloads)
	}
	mustLookup(t, restored, "cat", "meow")

	// an existing local file is not replaced by the remote
	NewManager(Config{Path: second, Remote: remote}, nil).Restore(context.Background())
	if remote.downloads != 1 {
		t.Errorf("downloads = %d, want 1 after restore with local file", remote.downloads)
	}
}

package backup

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ValentinKolb/triedb/lib/trie"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

// Logger is the logger of the backup package
var Logger = logger.GetLogger("backup")

var (
	backupsTotal   = metrics.NewCounter("triedb_backups_total")
	backupFailures = metrics.NewCounter("triedb_backup_failures_total")
	backupDuration = metrics.NewHistogram("triedb_backup_duration_seconds")
	backupBytes    = metrics.NewCounter("triedb_backup_bytes_total")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Source produces a full point-in-time serialization of the trie (see trie.PrefixTrie.Save).
type Source interface {
	Snapshot(w io.Writer) error
}

// Config configures a Manager.
type Config struct {
	// Path of the snapshot file
	Path string
	// Frequency of periodic snapshots, zero disables them
	Frequency time.Duration
	// FinalFlush writes one last snapshot on Close
	FinalFlush bool
	// Alphabet of the trie returned by Restore, defaults to trie.DefaultAlphabet
	Alphabet trie.Alphabet
	// Remote is an optional mirror of the snapshot file
	Remote Remote
}

// Manager restores the trie at startup and writes snapshots of it afterwards.
//
// Thread-safety: all methods are safe for concurrent use. Snapshot writes are serialized.
type Manager struct {
	config Config
	source Source

	writeMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewManager creates a new Manager. The source is only needed once snapshots
// are written, a restore-only Manager may pass nil.
func NewManager(config Config, source Source) *Manager {
	if config.Alphabet.Size() == 0 {
		config.Alphabet = trie.MustAlphabet(trie.DefaultAlphabet)
	}
	return &Manager{config: config, source: source}
}

// --------------------------------------------------------------------------
// Restore
// --------------------------------------------------------------------------

// Restore loads the snapshot at the configured path. A missing or corrupt snapshot
// is not an error: an empty trie over the configured alphabet is returned instead.
// If the local file is missing and a remote is configured, the remote copy is
// downloaded first.
func (m *Manager) Restore(ctx context.Context) *trie.PrefixTrie {
	path := m.config.Path
	empty := func() *trie.PrefixTrie { return trie.New(m.config.Alphabet) }

	if path == "" {
		Logger.Infof("no snapshot path configured, starting with an empty trie")
		return empty()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && m.config.Remote != nil {
		found, err := m.config.Remote.Download(ctx, path)
		switch {
		case err != nil:
			Logger.Errorf("failed to download snapshot from %s: %v", m.config.Remote, err)
		case found:
			Logger.Infof("downloaded snapshot from %s", m.config.Remote)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			Logger.Infof("no snapshot at %s, starting with an empty trie", path)
		} else {
			Logger.Errorf("failed to open snapshot %s, starting with an empty trie: %v", path, err)
		}
		return empty()
	}
	defer f.Close()

	loaded, err := trie.Load(f)
	if err != nil {
		Logger.Errorf("failed to load snapshot %s, starting with an empty trie: %v", path, err)
		return empty()
	}

	if !loaded.Alphabet().Equal(m.config.Alphabet) {
		rebuilt, skipped := rebuild(loaded, m.config.Alphabet)
		Logger.Warningf("snapshot alphabet %q differs from configured alphabet %q, skipped %d of %d entries",
			loaded.Alphabet(), m.config.Alphabet, skipped, loaded.Len())
		loaded = rebuilt
	}

	Logger.Infof("restored %d entries from %s", loaded.Len(), path)
	return loaded
}

// rebuild copies every entry of src that fits the alphabet into a new trie.
func rebuild(src *trie.PrefixTrie, alphabet trie.Alphabet) (*trie.PrefixTrie, int) {
	dst := trie.New(alphabet)
	skipped := 0
	src.Range(func(key, value []byte) bool {
		if err := dst.Insert(key, value); err != nil {
			skipped++
		}
		return true
	})
	return dst, skipped
}

// --------------------------------------------------------------------------
// Periodic Backup
// --------------------------------------------------------------------------

// Start runs Run in a background goroutine until Close is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("backup manager is closed")
	}
	if m.cancel != nil {
		return errors.New("backup manager already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		m.Run(ctx)
	}()
	return nil
}

// Run writes a snapshot every Frequency until ctx is done. Without a frequency
// it only waits for ctx. Failed snapshots are logged and retried on the next tick.
func (m *Manager) Run(ctx context.Context) {
	if m.config.Frequency <= 0 {
		Logger.Debugf("periodic backups disabled")
		<-ctx.Done()
		return
	}

	Logger.Infof("writing snapshots to %s every %s", m.config.Path, m.config.Frequency)
	ticker := time.NewTicker(m.config.Frequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Backup(ctx); err != nil {
				Logger.Errorf("backup failed, retrying in %s: %v", m.config.Frequency, err)
			}
		}
	}
}

// Backup writes one snapshot now: temp file next to the target, fsync, rename.
// A crash at any point leaves the previous snapshot intact. A configured remote
// receives the new file after the rename, its failure is logged but not returned.
func (m *Manager) Backup(ctx context.Context) (err error) {
	m.mu.Lock()
	source := m.source
	m.mu.Unlock()

	if source == nil {
		return errors.New("no snapshot source")
	}
	if m.config.Path == "" {
		return errors.New("no snapshot path configured")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	start := time.Now()
	defer func() {
		if err != nil {
			backupFailures.Inc()
			return
		}
		backupsTotal.Inc()
		backupDuration.UpdateDuration(start)
	}()

	var buf bytes.Buffer
	if err := source.Snapshot(&buf); err != nil {
		return errors.Wrap(err, "serialize trie")
	}
	if err := writeFileAtomic(m.config.Path, buf.Bytes()); err != nil {
		return err
	}
	backupBytes.Add(buf.Len())
	Logger.Debugf("wrote snapshot %s (%d bytes) in %s", m.config.Path, buf.Len(), time.Since(start))

	if m.config.Remote != nil {
		if err := m.config.Remote.Upload(ctx, m.config.Path); err != nil {
			Logger.Errorf("failed to upload snapshot to %s: %v", m.config.Remote, err)
		}
	}
	return nil
}

// Close stops the periodic task, waits for an in-flight snapshot and writes a final
// one if FinalFlush is set. Calling Close more than once is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var err error
	if m.config.FinalFlush {
		if err = m.Backup(context.Background()); err != nil {
			Logger.Errorf("final backup failed: %v", err)
		} else {
			Logger.Infof("wrote final snapshot to %s", m.config.Path)
		}
	}

	if m.config.Remote != nil {
		if cerr := m.config.Remote.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close remote")
		}
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// writeFileAtomic replaces path with data using a temp file in the same directory.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}

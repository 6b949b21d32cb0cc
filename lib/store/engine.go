package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ValentinKolb/triedb/lib/backup"
	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/lib/trie"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("store")

var _ IEngine = (*Engine)(nil)

// Config configures an Engine.
type Config struct {
	// Alphabet of allowed key bytes, defaults to trie.DefaultAlphabet
	Alphabet trie.Alphabet
	// Backup configures persistence. Backup.Alphabet is overwritten with Alphabet.
	Backup backup.Config
}

// Engine holds the trie and runs commands against it.
//
// Thread-safety: all methods are safe for concurrent use. Read-only commands share
// a read lock, SET and FLUSH hold the write lock. Snapshots are taken under the
// read lock, so they never observe a half-applied command.
type Engine struct {
	mu    sync.RWMutex
	trie  *trie.PrefixTrie
	state State

	alphabet trie.Alphabet
	backup   *backup.Manager

	metrics  *metrics.Set
	counters *xsync.MapOf[string, *metrics.Counter]
	failures *metrics.Counter
}

// NewEngine creates a stopped Engine. Start must be called before commands are accepted.
func NewEngine(config Config) *Engine {
	if config.Alphabet.Size() == 0 {
		config.Alphabet = trie.MustAlphabet(trie.DefaultAlphabet)
	}
	config.Backup.Alphabet = config.Alphabet

	e := &Engine{
		alphabet: config.Alphabet,
		state:    StateStopped,
		metrics:  metrics.NewSet(),
		counters: xsync.NewMapOf[string, *metrics.Counter](),
	}
	e.backup = backup.NewManager(config.Backup, e)
	e.failures = e.metrics.NewCounter("triedb_command_errors_total")
	e.metrics.NewGauge("triedb_entries", func() float64 {
		return float64(e.Len())
	})
	e.metrics.NewGauge("triedb_ready", func() float64 {
		if e.Ready() {
			return 1
		}
		return 0
	})
	return e
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Start restores the trie from the last snapshot, launches the periodic backup
// task and opens the engine for commands.
func (e *Engine) Start(ctx context.Context) error {
	if s := e.State(); s != StateStopped {
		return errors.Errorf("cannot start engine in state %s", s)
	}

	restored := e.backup.Restore(ctx)

	e.mu.Lock()
	if e.state != StateStopped {
		e.mu.Unlock()
		return errors.Errorf("cannot start engine in state %s", e.state)
	}
	e.trie = restored
	e.state = StateStarted
	e.mu.Unlock()

	if err := e.backup.Start(ctx); err != nil {
		return errors.Wrap(err, "start backup task")
	}
	Logger.Infof("engine started with %d entries, alphabet %q", restored.Len(), e.alphabet)
	return nil
}

// Close rejects further commands and stops the backup task (writing a final
// snapshot if configured). Calling Close more than once is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosed
	e.mu.Unlock()

	err := e.backup.Close()
	Logger.Infof("engine closed")
	return err
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) Ready() bool {
	return e.State() == StateStarted
}

// Backup writes a snapshot now.
func (e *Engine) Backup(ctx context.Context) error {
	return e.backup.Backup(ctx)
}

// --------------------------------------------------------------------------
// Export
// --------------------------------------------------------------------------

// Snapshot serializes the whole trie to w (see trie.PrefixTrie.Save).
// It blocks writers for the duration of the call, so w should be an in-memory buffer.
func (e *Engine) Snapshot(w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.trie == nil {
		return errors.New("engine has no trie, it was never started")
	}
	return e.trie.Save(w)
}

// Len returns the number of stored keys.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.trie == nil {
		return 0
	}
	return e.trie.Len()
}

// Alphabet returns the configured key alphabet.
func (e *Engine) Alphabet() trie.Alphabet {
	return e.alphabet
}

// --------------------------------------------------------------------------
// Execution
// --------------------------------------------------------------------------

// Execute runs one command. Command names are case-insensitive. Validation happens
// before any mutation, so a failed command leaves the trie unchanged.
func (e *Engine) Execute(name string, args [][]byte) (result any, err error) {
	cmd, known := commands[strings.ToUpper(name)]
	defer func() {
		if err != nil {
			e.failures.Inc()
		}
	}()

	if cmd.write {
		e.mu.Lock()
		defer e.mu.Unlock()
	} else {
		e.mu.RLock()
		defer e.mu.RUnlock()
	}

	if e.state != StateStarted {
		return nil, errs.BadRequest("not ready")
	}
	if !known {
		return nil, errs.BadRequest("command does not exist")
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return nil, errs.BadRequest("wrong number of arguments for '%s' command", cmd.name)
	}

	e.counter(cmd.name).Inc()
	return cmd.handler(e.trie, args)
}

// counter returns the call counter of a command.
func (e *Engine) counter(name string) *metrics.Counter {
	c, _ := e.counters.LoadOrCompute(name, func() *metrics.Counter {
		return e.metrics.GetOrCreateCounter(fmt.Sprintf(`triedb_commands_total{command=%q}`, strings.ToLower(name)))
	})
	return c
}

// CommandCount returns how often the command name was executed successfully past validation.
func (e *Engine) CommandCount(name string) uint64 {
	if c, ok := e.counters.Load(strings.ToUpper(name)); ok {
		return c.Get()
	}
	return 0
}

// WriteMetrics writes the engine's metrics in Prometheus text format.
func (e *Engine) WriteMetrics(w io.Writer) {
	e.metrics.WritePrometheus(w)
}

package store

import (
	"context"
	"io"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IEngine is the interface the rpc layer uses to run commands. *Engine implements it.
type IEngine interface {
	// Start restores the data and makes the engine accept commands.
	Start(ctx context.Context) error
	// Close stops accepting commands and releases all resources. Close is idempotent.
	Close() error
	// Execute runs the command name with the given arguments and returns its result.
	// Results are one of: nil, int64, []byte, [][]byte. All errors are *errs.Error
	// of kind BadRequest.
	Execute(name string, args [][]byte) (any, error)
	// Ready returns whether the engine accepts commands.
	Ready() bool
	// WriteMetrics writes the engine's metrics in Prometheus text format.
	WriteMetrics(w io.Writer)
}

// --------------------------------------------------------------------------
// Lifecycle States
// --------------------------------------------------------------------------

// State is the lifecycle state of an Engine.
//
//	Stopped --Start--> Started --Close--> Closed
//
// Commands are only executed in state Started. Closed is terminal.
type State uint32

const (
	StateStopped State = iota
	StateStarted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarted:
		return "started"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

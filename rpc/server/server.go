package server

import (
	"context"
	"errors"
	"sync"

	"github.com/ValentinKolb/triedb/lib/backup"
	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/lib/store"
	"github.com/ValentinKolb/triedb/lib/trie"
	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
	"github.com/ValentinKolb/triedb/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// NewEngine creates the storage engine described by config. A GCS mirror is
// attached to the backup manager when a bucket is configured.
func NewEngine(ctx context.Context, config common.ServerConfig) (*store.Engine, error) {
	alphabet, err := trie.NewAlphabet(config.Alphabet)
	if err != nil {
		return nil, err
	}

	backupConfig := backup.Config{
		Path:       config.Backup.Path,
		Frequency:  config.BackupFrequency(),
		FinalFlush: config.Backup.FinalFlush,
	}
	if config.Backup.GCSBucket != "" {
		remote, err := backup.NewGCSRemote(ctx, config.Backup.GCSBucket, config.Backup.GCSObject)
		if err != nil {
			return nil, err
		}
		backupConfig.Remote = remote
	}

	return store.NewEngine(store.Config{Alphabet: alphabet, Backup: backupConfig}), nil
}

// NewRPCServer creates a new RPC server
// It takes a config, the engine and one or more transports as parameters
//
// Usage:
//
//	engine, err := server.NewEngine(ctx, config)
//	if err != nil { ... }
//	s := server.NewRPCServer(config, engine, tcp.NewTCPServerTransport())
//	if err := s.Serve(ctx); err != nil { ... }
func NewRPCServer(
	config common.ServerConfig,
	engine store.IEngine,
	transports ...transport.IRPCServerTransport,
) *RPCServer {
	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", config.String())

	return &RPCServer{
		config:     config,
		engine:     engine,
		transports: transports,
	}
}

// RPCServer binds an engine to its transports.
type RPCServer struct {
	config     common.ServerConfig
	engine     store.IEngine
	transports []transport.IRPCServerTransport
}

// Serve starts the engine and all transports and blocks until ctx is done or a
// transport fails. On return all transports are stopped and the engine is closed.
func (s *RPCServer) Serve(ctx context.Context) error {
	if len(s.transports) == 0 {
		return errors.New("no transport configured")
	}
	if err := s.engine.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for _, t := range s.transports {
		t.RegisterHandler(s.Handle)

		wg.Add(1)
		go func(t transport.IRPCServerTransport) {
			defer wg.Done()
			if err := t.Listen(ctx, s.config); err != nil {
				Logger.Errorf("Transport failed: %v", err)
				errOnce.Do(func() { firstErr = err })
				cancel()
			}
		}(t)
	}

	wg.Wait()
	Logger.Infof("All transports stopped, closing engine")
	if err := s.engine.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Handle runs one request against the engine and returns the value to encode as response.
// BadRequests are returned as *errs.Error, which the codec encodes as error reply.
func (s *RPCServer) Handle(req resp.Message) any {
	name, args, err := parseRequest(req)
	if err != nil {
		return err
	}

	res, execErr := s.engine.Execute(name, args)
	if execErr != nil {
		var e *errs.Error
		if errors.As(execErr, &e) {
			return e
		}
		return errs.BadRequest("%s", execErr.Error())
	}
	return res
}

// parseRequest splits a request into command name and arguments. A request is
// a non-nil array of at least one non-nil bulk string.
func parseRequest(req resp.Message) (string, [][]byte, *errs.Error) {
	if req.Kind != resp.KindArray || req.Nil || len(req.Array) == 0 {
		return "", nil, errs.BadRequest("invalid request")
	}

	parts := make([][]byte, len(req.Array))
	for i, item := range req.Array {
		if item.Kind != resp.KindBulkString || item.Nil {
			return "", nil, errs.BadRequest("invalid request")
		}
		parts[i] = item.Str
	}
	return string(parts[0]), parts[1:], nil
}

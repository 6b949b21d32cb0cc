// Package server implements the RPC server of triedb. It binds one storage
// engine to any number of transports:
//
//   - NewEngine builds the engine (alphabet, backup manager, optional GCS mirror)
//     from a ServerConfig.
//   - RPCServer.Handle turns a decoded request into a command call. A request must
//     be an array of bulk strings, the first naming the command; everything else is
//     answered with an "invalid request" error. Errors of the engine are answered
//     with their message and the connection stays open.
//   - RPCServer.Serve starts the engine (restoring the last snapshot), runs all
//     transports until the context is done and closes the engine afterwards, which
//     writes a final snapshot if configured.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Transport: common.ServerTransportConfig{Type: common.TransportTCP, Endpoint: ":6380"},
//	  Alphabet:  trie.DefaultAlphabet,
//	  Backup:    common.BackupConfig{Path: "data.trie", FrequencySec: 60},
//	  IdleTimeoutSec: 300,
//	  LogLevel:  "info",
//	}
//
//	engine, err := server.NewEngine(ctx, config)
//	if err != nil { ... }
//	s := server.NewRPCServer(config, engine, tcp.NewTCPServerTransport())
//	if err := s.Serve(ctx); err != nil { ... }
package server

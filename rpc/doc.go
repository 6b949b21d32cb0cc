// Package rpc is the communication layer of TrieDB. It carries RESP-style
// request and response frames between clients and the storage engine.
//
// The package is organized into several subpackages:
//
//   - resp: the wire codec (Message, Reader with idle timeout, Marshal/Encode).
//
//   - common: configuration structures and the logger setup shared by server and client.
//
//   - transport: network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP / WebSocket).
//
//   - server: validates requests and dispatches them into the storage engine.
//
//   - client: typed client for all TrieDB commands.
package rpc

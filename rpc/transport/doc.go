// Package transport defines the contracts between the rpc layer and the network.
//
// A server transport decodes requests from the network with the resp codec,
// passes each of them to a ServerHandleFunc and encodes the returned value as
// the response. A client transport sends one request Message and returns the
// response Message.
//
// Implementations:
//   - tcp and unix: stream transports built on the base package, one session
//     goroutine per connection
//   - http: RESP frames in HTTP POST bodies and WebSocket messages, plus the
//     /metrics and /healthz endpoints
package transport

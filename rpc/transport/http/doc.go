// Package http implements the HTTP transport of triedb. It runs next to one of
// the stream transports and carries the same RESP frames:
//
//   - POST /: the body is one request frame, the response body one response frame
//     (status 400 for frames that cannot be decoded)
//   - GET /ws: WebSocket upgrade (gorilla/websocket), every binary or text message
//     is one request frame and is answered with one binary message
//   - GET /metrics: all metrics in Prometheus text format
//   - GET /healthz: 200 once the engine accepts commands, 503 before
//
// The client transport posts frames round robin to the configured endpoints.
package http

// Package base provides the stream transport shared by the tcp and unix packages.
// Protocol specific parts (creating listeners, dialing, socket options) are
// injected through IServerConnector and IClientConnector.
//
// Server:
//
//	Every accepted connection gets its own session goroutine which reads a
//	request, passes it to the registered handler and writes the response before
//	reading the next request. Reading the first byte of a request is bounded by
//	the configured idle timeout; a timeout or a closed peer ends only that session.
//	A malformed frame is answered with an error and the connection is closed,
//	since the rest of the stream cannot be parsed reliably. Live connections are
//	kept in a registry so Listen can close them when its context is done.
//
// Client:
//
//	The client keeps ConnectionsPerEndpoint connections per endpoint and picks
//	one round robin per request. A connection is held for the whole round trip.
//	Failed connections are dropped and re-established by the next request on
//	them; requests are retried with exponential backoff up to RetryCount times.
//
// Thread Safety:
//
//	All public methods are thread-safe.
package base

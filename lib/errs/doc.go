// Package errs defines the error kinds shared by the storage engine, the wire
// codec, the transports and the client.
//
// Every error that crosses a package boundary is an *Error carrying a Kind:
//
//   - BadRequest: unknown command, wrong arity, key outside the alphabet,
//     malformed frame or an engine that has not been started. The server turns
//     it into an error reply and keeps the connection open.
//   - ProtocolError: the encoder was handed a value it cannot represent. It is
//     never sent to a peer.
//   - ConnectionError: idle timeout, empty read or a peer that closed mid-frame.
//     The connection is terminated.
//   - ClientError: an error reply received by the client library.
//
// The predicates (IsBadRequest, IsConnection, ...) look through wrapped errors.
package errs

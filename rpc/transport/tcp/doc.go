// Package tcp implements the TCP socket transport of triedb on top of the base
// package: listeners, dialing and socket options (TCP_NODELAY, keep-alive,
// linger, buffer sizes).
package tcp

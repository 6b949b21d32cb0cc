// Package unix implements the Unix domain socket transport of triedb on top of
// the base package. Listen removes a stale socket file before binding.
package unix

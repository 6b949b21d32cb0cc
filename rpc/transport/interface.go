package transport

import (
	"context"

	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer for every decoded request
// It returns the value to encode as the response (see resp.Marshal for the accepted types)
type ServerHandleFunc func(req resp.Message) any

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called once per request, responses are written in request order
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves requests until ctx is done
	// On return the listener and all connections are closed
	Listen(ctx context.Context, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(req resp.Message) (resp.Message, error)
	// Close closes the transport connection
	Close() error
}

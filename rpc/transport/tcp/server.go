package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/transport"
	"github.com/ValentinKolb/triedb/rpc/transport/base"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %v", err)
	}
	return listener, nil
}

// UpgradeConnection applies the TCP options of the server config to an accepted connection
func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}
	t := config.Transport
	return upgrade(tcpConn, t.TCPNoDelay, t.TCPKeepAliveSec, t.TCPLingerSec, t.WriteBufferSize, t.ReadBufferSize)
}

// upgrade applies socket options, zero values keep the system defaults
// (a negative linger keeps the default as well)
func upgrade(conn *net.TCPConn, noDelay bool, keepAliveSec, lingerSec, writeBuf, readBuf int) error {
	// Disable Nagle's algorithm if configured
	if err := conn.SetNoDelay(noDelay); err != nil {
		return err
	}

	// Set socket buffer sizes if configured
	if writeBuf > 0 {
		if err := conn.SetWriteBuffer(writeBuf); err != nil {
			return err
		}
	}
	if readBuf > 0 {
		if err := conn.SetReadBuffer(readBuf); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if keepAliveSec > 0 {
		if err := conn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := conn.SetKeepAlivePeriod(time.Duration(keepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	// Set TCP linger option if configured
	if lingerSec > 0 {
		if err := conn.SetLinger(lingerSec); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}

package base

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
	"github.com/ValentinKolb/triedb/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	activeConnections atomic.Int64
	connectionsTotal  = metrics.NewCounter("triedb_connections_total")
	requestsTotal     = metrics.NewCounter("triedb_requests_total")
	_                 = metrics.NewGauge("triedb_connections_active", func() float64 {
		return float64(activeConnections.Load())
	})
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig

	// live connections, closed on shutdown
	conns *xsync.MapOf[net.Conn, time.Time]
	wg    sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with one session goroutine per connection
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[net.Conn, time.Time](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return err
	}

	Logger.Infof("Starting %s server on %s (idle timeout %s)",
		t.connector.GetName(), listener.Addr(), config.IdleTimeout())

	// Close the listener and all sessions once ctx is done
	stop := make(chan struct{})
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = listener.Close()
		t.conns.Range(func(conn net.Conn, _ time.Time) bool {
			_ = conn.Close()
			return true
		})
	}()

	// Accept connections
	var acceptErr error
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				Logger.Warningf("Accept error: %v", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			acceptErr = err
			break
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Errorf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}

		// Handle the connection in a goroutine
		t.conns.Store(conn, time.Now())
		if ctx.Err() != nil {
			// registered after the shutdown sweep
			_ = conn.Close()
		}
		t.wg.Add(1)
		go t.handleConnection(conn)
	}

	// Wait for the listener and the sessions to be closed
	close(stop)
	<-closed
	t.wg.Wait()
	Logger.Infof("Stopped %s server", t.connector.GetName())
	return acceptErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection runs the session loop of one connection: read a request,
// handle it, write the response. It ends on the first ConnectionError or a
// malformed frame (after answering it with an error).
func (t *serverTransport) handleConnection(conn net.Conn) {
	activeConnections.Add(1)
	connectionsTotal.Inc()
	defer func() {
		t.conns.Delete(conn)
		_ = conn.Close()
		activeConnections.Add(-1)
		t.wg.Done()
	}()

	remote := conn.RemoteAddr().String()
	Logger.Debugf("Accepted connection from %s", remote)

	reader := resp.NewReaderTimeout(conn, t.config.IdleTimeout())
	for {
		req, err := reader.ReadMessage()

		// Case connection error: timeout, peer closed (the normal end of a session)
		if errs.IsConnection(err) {
			Logger.Debugf("Closing connection from %s: %v", remote, err)
			return
		}

		// Case malformed frame: the stream cannot be resynchronized, answer and close
		if err != nil {
			Logger.Debugf("Malformed request from %s: %v", remote, err)
			_ = resp.Encode(conn, err)
			return
		}

		requestsTotal.Inc()
		start := time.Now()
		res := t.handler(req)
		Logger.Debugf("Processed request from %s in %s", remote, time.Since(start))

		if err := resp.Encode(conn, res); err != nil {
			// a ProtocolError means the handler returned a value the codec does not know
			Logger.Errorf("Failed to write response to %s: %v", remote, err)
			return
		}
	}
}

package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
	"github.com/ValentinKolb/triedb/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/websocket"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

const (
	// maxBodySize limits a request body: one bulk string at the codec limit plus framing
	maxBodySize = resp.MaxBulkLen + 64*1024

	// shutdownTimeout bounds the graceful shutdown of the HTTP server
	shutdownTimeout = 5 * time.Second

	contentType = "application/x-resp"
)

// Options configures the endpoints next to the RPC endpoint.
type Options struct {
	// Ready reports readiness for GET /healthz, nil means always ready
	Ready func() bool
	// WriteMetrics appends metrics to GET /metrics, may be nil
	WriteMetrics func(w io.Writer)
}

// NewHttpServerTransport creates a transport serving RESP frames over HTTP and WebSocket.
// It listens on config.Transport.HTTPEndpoint.
func NewHttpServerTransport(opts Options) transport.IRPCServerTransport {
	return &httpServerTransport{opts: opts}
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc
	opts    Options
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}

	listener, err := net.Listen("tcp", config.Transport.HTTPEndpoint)
	if err != nil {
		return err
	}

	h := NewHandler(t.handler, t.opts, config.IdleTimeout(), config.LogLevel == "debug")
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}

	// Shut down once ctx is done, websocket sessions are hijacked and closed separately
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			Logger.Errorf("HTTP server shutdown: %v", err)
		}
		h.closeSessions()
	}()

	Logger.Infof("Starting HTTP server on %s", listener.Addr())
	if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Handler
// --------------------------------------------------------------------------

// Handler serves the HTTP endpoints:
//
//	POST /        one RESP request frame in the body, one RESP response frame back
//	GET  /ws      WebSocket, one RESP frame per binary message in both directions
//	GET  /metrics Prometheus text format
//	GET  /healthz 200 when ready, 503 otherwise
type Handler struct {
	mux      *http.ServeMux
	handler  transport.ServerHandleFunc
	opts     Options
	idle     time.Duration
	upgrader websocket.Upgrader
	sessions *xsync.MapOf[*websocket.Conn, struct{}]
}

// NewHandler creates the HTTP handler of the transport. idle bounds the wait for
// the next WebSocket message, zero disables it.
func NewHandler(handler transport.ServerHandleFunc, opts Options, idle time.Duration, debug bool) *Handler {
	h := &Handler{
		mux:     http.NewServeMux(),
		handler: handler,
		opts:    opts,
		idle:    idle,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		sessions: xsync.NewMapOf[*websocket.Conn, struct{}](),
	}

	// Register handlers
	if debug {
		h.mux.HandleFunc("POST /{$}", loggerMiddleware(h.handleRequest))
	} else {
		h.mux.HandleFunc("POST /{$}", h.handleRequest)
	}
	h.mux.HandleFunc("GET /ws", h.handleWebSocket)
	h.mux.HandleFunc("GET /metrics", h.handleMetrics)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handleRequest handles one RESP request frame in the body of a POST request
func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	out, status := h.process(body)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(out); err != nil {
		Logger.Debugf("Failed to write response: %v", err)
	}
}

// handleWebSocket runs a session: every binary or text message is one request frame
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Debugf("WebSocket upgrade failed: %v", err)
		return
	}
	h.sessions.Store(conn, struct{}{})
	defer func() {
		h.sessions.Delete(conn)
		_ = conn.Close()
	}()
	conn.SetReadLimit(maxBodySize)

	for {
		if h.idle > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(h.idle))
		}
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			Logger.Debugf("Closing WebSocket session from %s: %v", r.RemoteAddr, err)
			return
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}

		out, _ := h.process(data)
		if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
			Logger.Debugf("Failed to write WebSocket response: %v", err)
			return
		}
	}
}

// process decodes one frame, handles it and returns the encoded response with an HTTP status
func (h *Handler) process(frame []byte) ([]byte, int) {
	req, err := resp.NewReader(bytes.NewReader(frame)).ReadMessage()
	if err != nil {
		// a missing or truncated frame is a malformed request on this transport
		out, _ := resp.Marshal(errs.BadRequest("%s", errs.Message(err)))
		return out, http.StatusBadRequest
	}

	out, err := resp.Marshal(h.handler(req))
	if err != nil {
		Logger.Errorf("Failed to encode response: %v", err)
		out, _ = resp.Marshal(resp.NewError("internal error"))
		return out, http.StatusInternalServerError
	}
	return out, http.StatusOK
}

func (h *Handler) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
	if h.opts.WriteMetrics != nil {
		h.opts.WriteMetrics(w)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if h.opts.Ready != nil && !h.opts.Ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	_, _ = io.WriteString(w, "ok\n")
}

// closeSessions closes all open WebSocket sessions
func (h *Handler) closeSessions() {
	h.sessions.Range(func(conn *websocket.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}

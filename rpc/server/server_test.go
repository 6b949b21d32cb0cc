package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/lib/trie"
	"github.com/ValentinKolb/triedb/rpc/client"
	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
	"github.com/ValentinKolb/triedb/rpc/transport/unix"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

func testConfig(t *testing.T) common.ServerConfig {
	dir := t.TempDir()
	return common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Type:     common.TransportUnix,
			Endpoint: filepath.Join(dir, "triedb.sock"),
		},
		Backup: common.BackupConfig{
			Path:       filepath.Join(dir, "data.trie"),
			FinalFlush: true,
		},
		Alphabet:       trie.DefaultAlphabet,
		IdleTimeoutSec: 300,
		LogLevel:       "error",
	}
}

// startServer runs a server until the test ends and returns a stop function
// that blocks until Serve returned
func startServer(t *testing.T, config common.ServerConfig) (stop func() error) {
	t.Helper()
	engine, err := NewEngine(context.Background(), config)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	s := NewRPCServer(config, engine, unix.NewUnixServerTransport())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	// wait until the socket accepts connections
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("unix", config.Transport.Endpoint)
		if err == nil {
			_ = conn.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var stopped bool
	var serveErr error
	stop = func() error {
		if !stopped {
			stopped = true
			cancel()
			select {
			case serveErr = <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("Serve() did not return after cancellation")
			}
		}
		return serveErr
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func dial(t *testing.T, config common.ServerConfig) *client.Client {
	t.Helper()
	c, err := client.Dial(common.ClientConfig{
		Transport: common.ClientTransportConfig{
			Type:      common.TransportUnix,
			Endpoints: []string{config.Transport.Endpoint},
		},
		TimeoutSecond: 5,
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func bulkArray(s ...string) resp.Message {
	items := make([]resp.Message, len(s))
	for i, v := range s {
		items[i] = resp.NewBulk([]byte(v))
	}
	return resp.NewArray(items...)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestHandle(t *testing.T) {
	config := testConfig(t)
	engine, err := NewEngine(context.Background(), config)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	s := NewRPCServer(config, engine)

	// not started yet
	if got := s.Handle(bulkArray("ECHO", "x")); !reflect.DeepEqual(got, errs.BadRequest("not ready")) {
		t.Errorf("Handle() before start = %v, want not ready", got)
	}

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer engine.Close()

	tests := []struct {
		name string
		req  resp.Message
		want string // encoded response
	}{
		{"Set", bulkArray("SET", "cat", "meow"), "$-1\r\n"},
		{"Get", bulkArray("GET", "cat"), "$4\r\nmeow\r\n"},
		{"GetMissing", bulkArray("GET", "dog"), "$-1\r\n"},
		{"Exists", bulkArray("EXISTS", "cat", "dog"), ":1\r\n"},
		{"PGetL", bulkArray("PGETL", "caterpillar"), "*2\r\n$3\r\ncat\r\n$4\r\nmeow\r\n"},
		{"PGetLMissing", bulkArray("PGETL", "dog"), "$-1\r\n"},
		{"WPGetEmpty", bulkArray("WPGET", "x"), "*0\r\n"},
		{"Unknown", bulkArray("NOPE"), "-command does not exist\r\n"},
		{"Arity", bulkArray("SET", "a"), "-wrong number of arguments for 'SET' command\r\n"},
		{"Alphabet", bulkArray("GET", "A"), "-invalid key: byte 'A' is not in the alphabet\r\n"},
		{"NotArray", resp.NewBulk([]byte("GET")), "-invalid request\r\n"},
		{"NilArray", resp.NilArray(), "-invalid request\r\n"},
		{"EmptyArray", resp.NewArray(), "-invalid request\r\n"},
		{"NilBulkArgument", resp.NewArray(resp.NewBulk([]byte("GET")), resp.NilBulk()), "-invalid request\r\n"},
		{"IntegerArgument", resp.NewArray(resp.NewBulk([]byte("GET")), resp.NewInteger(1)), "-invalid request\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := resp.Marshal(s.Handle(tt.req))
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("Handle() = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestServeEndToEnd(t *testing.T) {
	config := testConfig(t)
	stop := startServer(t, config)
	c := dial(t, config)

	if err := c.Set([]byte("cat"), []byte("meow")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set([]byte("car"), []byte("vroom")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := c.Get([]byte("cat"))
	if err != nil || !ok || string(value) != "meow" {
		t.Errorf("Get(cat) = %q, %v, %v", value, ok, err)
	}
	if n, err := c.PExists([]byte("ca")); err != nil || n != 1 {
		t.Errorf("PExists(ca) = %d, %v", n, err)
	}
	entry, ok, err := c.PGetL([]byte("caterpillar"))
	if err != nil || !ok || string(entry.Key) != "cat" || string(entry.Value) != "meow" {
		t.Errorf("PGetL(caterpillar) = %q, %v, %v", entry, ok, err)
	}
	entries, err := c.WPGet([]byte("ca"))
	if err != nil || len(entries) != 2 {
		t.Errorf("WPGet(ca) = %q, %v", entries, err)
	}

	// a bad request leaves the connection usable
	_, err = c.DoString("NOPE")
	if !errs.IsClient(err) || errs.Message(err) != "command does not exist" {
		t.Errorf("Do(NOPE) error = %v", err)
	}
	if msg, err := c.Echo([]byte("still there")); err != nil || string(msg) != "still there" {
		t.Errorf("Echo() = %q, %v", msg, err)
	}

	// shutdown writes the final snapshot, a new server restores it
	if err := stop(); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if _, err := os.Stat(config.Backup.Path); err != nil {
		t.Fatalf("no snapshot after shutdown: %v", err)
	}

	startServer(t, config)
	c = dial(t, config)
	value, ok, err = c.Get([]byte("car"))
	if err != nil || !ok || string(value) != "vroom" {
		t.Errorf("Get(car) after restart = %q, %v, %v", value, ok, err)
	}
}

func TestMalformedFrameClosesConnection(t *testing.T) {
	config := testConfig(t)
	startServer(t, config)

	conn, err := net.Dial("unix", config.Transport.Endpoint)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte("?garbage\r\n")); err != nil {
		t.Fatal(err)
	}
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil || line != "-bad first byte\r\n" {
		t.Fatalf("response = %q, %v", line, err)
	}
	if _, err := r.ReadByte(); err != io.EOF {
		t.Errorf("expected EOF after malformed frame, got %v", err)
	}
}

func TestPipelinedRequests(t *testing.T) {
	config := testConfig(t)
	startServer(t, config)

	conn, err := net.Dial("unix", config.Transport.Endpoint)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	var frames []byte
	for _, req := range []resp.Message{
		bulkArray("SET", "a", "1"),
		bulkArray("GET", "a"),
		bulkArray("GET", "b"),
		bulkArray("EXISTS", "a"),
	} {
		frame, err := resp.Marshal(req)
		if err != nil {
			t.Fatal(err)
		}
		frames = append(frames, frame...)
	}
	if _, err := conn.Write(frames); err != nil {
		t.Fatal(err)
	}

	r := resp.NewReader(conn)
	want := []resp.Message{resp.NilBulk(), resp.NewBulk([]byte("1")), resp.NilBulk(), resp.NewInteger(1)}
	for i, w := range want {
		got, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("response %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, w) {
			t.Errorf("response %d = %v, want %v", i, got, w)
		}
	}
}

func TestIdleTimeoutClosesConnection(t *testing.T) {
	config := testConfig(t)
	config.IdleTimeoutSec = 1
	startServer(t, config)

	conn, err := net.Dial("unix", config.Transport.Endpoint)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	start := time.Now()
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("expected EOF from idle server, got %v", err)
	}
	if d := time.Since(start); d < 500*time.Millisecond {
		t.Errorf("connection closed after %s, before the idle timeout", d)
	}

	// other clients are not affected
	c := dial(t, config)
	if _, err := c.Echo([]byte("ping")); err != nil {
		t.Errorf("Echo() error = %v", err)
	}
}

func TestNewEngineInvalidAlphabet(t *testing.T) {
	config := testConfig(t)
	config.Alphabet = "aa"
	if _, err := NewEngine(context.Background(), config); !errs.IsBadRequest(err) {
		t.Errorf("NewEngine() error = %v, want BadRequest", err)
	}
}

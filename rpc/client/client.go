package client

import (
	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/lib/trie"
	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
	"github.com/ValentinKolb/triedb/rpc/transport"
	"github.com/ValentinKolb/triedb/rpc/transport/http"
	"github.com/ValentinKolb/triedb/rpc/transport/tcp"
	"github.com/ValentinKolb/triedb/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// Client sends commands to a triedb server.
//
// Thread-safety: a Client is safe for concurrent use as long as its transport is.
type Client struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// Dial connects to the server with the transport named in config.Transport.Type.
func Dial(config common.ClientConfig) (*Client, error) {
	var t transport.IRPCClientTransport
	switch config.Transport.Type {
	case common.TransportTCP, "":
		t = tcp.NewTCPClientTransport()
	case common.TransportUnix:
		t = unix.NewUnixClientTransport()
	case common.TransportHTTP:
		t = http.NewHttpClientTransport()
	default:
		return nil, errs.Client("unknown transport %q", config.Transport.Type)
	}
	Logger.Debugf("Dialing %v using %s transport", config.Transport.Endpoints, config.Transport.Type)
	return NewClient(config, t)
}

// NewClient connects the given transport and returns a Client using it.
func NewClient(config common.ClientConfig, t transport.IRPCClientTransport) (*Client, error) {
	if err := t.Connect(config); err != nil {
		return nil, err
	}
	return &Client{config: config, transport: t}, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Generic Request
// --------------------------------------------------------------------------

// Do sends the command args[0] with the arguments args[1:] and returns the raw
// response. An error reply of the server is returned as ClientError, transport
// failures as ConnectionError.
func (c *Client) Do(args ...[]byte) (resp.Message, error) {
	if len(args) == 0 {
		return resp.Message{}, errs.Client("no command given")
	}

	items := make([]resp.Message, len(args))
	for i, a := range args {
		items[i] = resp.NewBulk(a)
	}

	res, err := c.transport.Send(resp.NewArray(items...))
	if err != nil {
		return resp.Message{}, err
	}
	if res.Kind == resp.KindError {
		return resp.Message{}, errs.Client("%s", res.Str)
	}
	return res, nil
}

// DoString is Do with string arguments.
func (c *Client) DoString(args ...string) (resp.Message, error) {
	b := make([][]byte, len(args))
	for i, a := range args {
		b[i] = []byte(a)
	}
	return c.Do(b...)
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// Set stores value at key.
func (c *Client) Set(key, value []byte) error {
	_, err := c.Do([]byte("SET"), key, value)
	return err
}

// Get returns the value at key. The boolean reports whether the key exists.
func (c *Client) Get(key []byte) ([]byte, bool, error) {
	res, err := c.Do([]byte("GET"), key)
	if err != nil {
		return nil, false, err
	}
	if res.IsNil() {
		return nil, false, nil
	}
	value, ok := res.Bytes()
	if !ok {
		return nil, false, unexpected("GET", res)
	}
	return value, true, nil
}

// Exists returns how many of the keys exist.
func (c *Client) Exists(keys ...[]byte) (int64, error) {
	return c.count("EXISTS", keys)
}

// PExists returns for how many of the prefixes at least one key exists.
func (c *Client) PExists(prefixes ...[]byte) (int64, error) {
	return c.count("PEXISTS", prefixes)
}

// PGet returns all entries whose key is a prefix of word.
func (c *Client) PGet(word []byte) ([]trie.Entry, error) {
	return c.entries("PGET", word)
}

// PGetL returns the entry with the longest key that is a prefix of word.
func (c *Client) PGetL(word []byte) (trie.Entry, bool, error) {
	res, err := c.Do([]byte("PGETL"), word)
	if err != nil {
		return trie.Entry{}, false, err
	}
	if res.IsNil() {
		return trie.Entry{}, false, nil
	}
	entries, err := toEntries("PGETL", res)
	if err != nil {
		return trie.Entry{}, false, err
	}
	if len(entries) != 1 {
		return trie.Entry{}, false, unexpected("PGETL", res)
	}
	return entries[0], true, nil
}

// WPGet returns all entries whose key starts with prefix. An empty prefix returns all entries.
func (c *Client) WPGet(prefix []byte) ([]trie.Entry, error) {
	return c.entries("WPGET", prefix)
}

// Flush removes all entries.
func (c *Client) Flush() error {
	_, err := c.Do([]byte("FLUSH"))
	return err
}

// Echo returns msg as sent back by the server.
func (c *Client) Echo(msg []byte) ([]byte, error) {
	res, err := c.Do([]byte("ECHO"), msg)
	if err != nil {
		return nil, err
	}
	value, ok := res.Bytes()
	if !ok {
		return nil, unexpected("ECHO", res)
	}
	return value, nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func (c *Client) count(cmd string, args [][]byte) (int64, error) {
	res, err := c.Do(append([][]byte{[]byte(cmd)}, args...)...)
	if err != nil {
		return 0, err
	}
	if res.Kind != resp.KindInteger {
		return 0, unexpected(cmd, res)
	}
	return res.Int, nil
}

func (c *Client) entries(cmd string, arg []byte) ([]trie.Entry, error) {
	res, err := c.Do([]byte(cmd), arg)
	if err != nil {
		return nil, err
	}
	return toEntries(cmd, res)
}

// toEntries converts a flat key/value array into entries
func toEntries(cmd string, res resp.Message) ([]trie.Entry, error) {
	if res.Kind != resp.KindArray || res.Nil || len(res.Array)%2 != 0 {
		return nil, unexpected(cmd, res)
	}
	out := make([]trie.Entry, 0, len(res.Array)/2)
	for i := 0; i < len(res.Array); i += 2 {
		key, okKey := res.Array[i].Bytes()
		value, okValue := res.Array[i+1].Bytes()
		if !okKey || !okValue {
			return nil, unexpected(cmd, res)
		}
		out = append(out, trie.Entry{Key: key, Value: value})
	}
	return out, nil
}

func unexpected(cmd string, res resp.Message) error {
	return errs.Client("unexpected %s response for %s: %s", res.Kind, cmd, res)
}

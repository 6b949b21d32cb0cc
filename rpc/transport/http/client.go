package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
	"github.com/ValentinKolb/triedb/rpc/transport"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURLs []string
	client     *http.Client
	counter    uint32
	retryCount int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return errs.Client("no endpoints provided")
	}

	// Endpoints may be given as host:port or as URL
	urls := make([]string, len(config.Transport.Endpoints))
	for i, endpoint := range config.Transport.Endpoints {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "http://" + endpoint
		}
		urls[i] = strings.TrimSuffix(endpoint, "/") + "/"
	}

	// Create client with default transport
	t.client = &http.Client{
		Timeout: config.Timeout(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: max(10, config.Transport.ConnectionsPerEndpoint),
			IdleConnTimeout:     90 * time.Second,
		},
	}
	t.serverURLs = urls
	t.counter = 0
	t.retryCount = max(1, config.Transport.RetryCount)
	return nil
}

func (t *httpClientTransport) Send(req resp.Message) (resp.Message, error) {
	// Check if the transport is initialized
	if t.client == nil {
		return resp.Message{}, errs.Client("http transport not initialized")
	}

	frame, err := resp.Marshal(req)
	if err != nil {
		return resp.Message{}, err
	}

	var lastErr error
	for i := 0; i < t.retryCount; i++ {
		// Select the next server via round-robin
		idx := atomic.AddUint32(&t.counter, 1) % uint32(len(t.serverURLs))

		res, err := t.post(t.serverURLs[idx], frame)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return resp.Message{}, errs.Connection("failed to send request after %d attempts: %v", t.retryCount, lastErr)
}

func (t *httpClientTransport) Close() error {
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	t.client = nil
	t.serverURLs = nil
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// post sends one frame; 4xx responses still carry a RESP error frame
func (t *httpClientTransport) post(url string, frame []byte) (resp.Message, error) {
	httpResponse, err := t.client.Post(url, contentType, bytes.NewReader(frame))
	if err != nil {
		return resp.Message{}, err
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode >= http.StatusInternalServerError {
		return resp.Message{}, fmt.Errorf("http error: %s", httpResponse.Status)
	}
	return resp.NewReader(httpResponse.Body).ReadMessage()
}

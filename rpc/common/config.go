package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// TransportType selects the stream transport of server and client.
type TransportType string

const (
	TransportTCP  TransportType = "tcp"
	TransportUnix TransportType = "unix"
	TransportHTTP TransportType = "http" // client only, the server runs HTTP next to a stream transport
)

// ServerTransportConfig holds the socket settings of the server.
type ServerTransportConfig struct {
	Type     TransportType
	Endpoint string
	// HTTPEndpoint enables the HTTP / WebSocket / metrics listener, empty disables it
	HTTPEndpoint string

	// TCP socket options (ignored for unix sockets)
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

// BackupConfig holds the snapshot settings of the server.
type BackupConfig struct {
	Path         string
	FrequencySec int
	FinalFlush   bool
	GCSBucket    string
	GCSObject    string
}

// ServerConfig holds all configuration parameters of a triedb server.
type ServerConfig struct {
	Transport ServerTransportConfig
	Backup    BackupConfig

	// Alphabet of allowed key bytes
	Alphabet string

	// IdleTimeoutSec bounds the wait for the first byte of a request, 0 disables it
	IdleTimeoutSec int

	// Logging configuration
	LogLevel string
}

// IdleTimeout returns IdleTimeoutSec as a duration.
func (c *ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

// BackupFrequency returns Backup.FrequencySec as a duration.
func (c *ServerConfig) BackupFrequency() time.Duration {
	return time.Duration(c.Backup.FrequencySec) * time.Second
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	disabledIfEmpty := func(s string) string {
		if s == "" {
			return "disabled"
		}
		return s
	}

	// RPC settings
	addSection("RPC Server")
	addField("Transport", string(c.Transport.Type))
	addField("Endpoint", c.Transport.Endpoint)
	addField("HTTP Endpoint", disabledIfEmpty(c.Transport.HTTPEndpoint))
	addField("Idle Timeout", fmt.Sprintf("%d sec", c.IdleTimeoutSec))
	if c.Transport.Type == TransportTCP {
		addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
		addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
		addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	}

	// Storage
	addSection("Storage")
	addField("Alphabet", strconv.Quote(c.Alphabet))

	// Backup
	addSection("Backup")
	addField("Path", disabledIfEmpty(c.Backup.Path))
	if c.Backup.FrequencySec > 0 {
		addField("Frequency", fmt.Sprintf("%d sec", c.Backup.FrequencySec))
	} else {
		addField("Frequency", "disabled")
	}
	addField("Final Flush", strconv.FormatBool(c.Backup.FinalFlush))
	if c.Backup.GCSBucket != "" {
		addField("GCS Mirror", fmt.Sprintf("gs://%s/%s", c.Backup.GCSBucket, c.Backup.GCSObject))
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the connection settings of the client.
type ClientTransportConfig struct {
	Type                   TransportType
	Endpoints              []string
	ConnectionsPerEndpoint int
	RetryCount             int

	// TCP socket options
	TCPNoDelay      bool
	TCPKeepAliveSec int
}

type ClientConfig struct {
	Transport     ClientTransportConfig
	TimeoutSecond int
}

// Timeout returns TimeoutSecond as a duration.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Transport", string(c.Transport.Type))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

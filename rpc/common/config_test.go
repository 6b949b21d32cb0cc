package common

import (
	"strings"
	"testing"
	"time"
)

func TestServerConfigString(t *testing.T) {
	config := ServerConfig{
		Transport: ServerTransportConfig{
			Type:       TransportTCP,
			Endpoint:   "0.0.0.0:6380",
			TCPNoDelay: true,
		},
		Backup: BackupConfig{
			Path:         "data.trie",
			FrequencySec: 60,
			GCSBucket:    "bucket",
			GCSObject:    "triedb/data.trie",
		},
		Alphabet:       "abc",
		IdleTimeoutSec: 300,
		LogLevel:       "info",
	}

	out := config.String()
	for _, want := range []string{
		"RPC SERVER",
		"0.0.0.0:6380",
		"HTTP Endpoint",
		"disabled",
		`"abc"`,
		"60 sec",
		"gs://bucket/triedb/data.trie",
		"TCP No Delay",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("String() misses %q:\n%s", want, out)
		}
	}

	if config.IdleTimeout() != 300*time.Second {
		t.Errorf("IdleTimeout() = %v", config.IdleTimeout())
	}
	if config.BackupFrequency() != time.Minute {
		t.Errorf("BackupFrequency() = %v", config.BackupFrequency())
	}
}

func TestClientConfigString(t *testing.T) {
	config := ClientConfig{
		Transport: ClientTransportConfig{
			Type:      TransportUnix,
			Endpoints: []string{"/tmp/triedb.sock"},
		},
		TimeoutSecond: 5,
	}
	out := config.String()
	for _, want := range []string{"unix", "/tmp/triedb.sock", "5 sec", "Connections Per Endpoint: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() misses %q:\n%s", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "warning", "error"} {
		parseLogLevel(level)
	}

	defer func() {
		if recover() == nil {
			t.Error("parseLogLevel(verbose) expected panic")
		}
	}()
	parseLogLevel("verbose")
}

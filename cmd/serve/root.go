package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/triedb/cmd/util"
	"github.com/ValentinKolb/triedb/lib/trie"
	"github.com/ValentinKolb/triedb/rpc/common"
	"github.com/ValentinKolb/triedb/rpc/resp"
	"github.com/ValentinKolb/triedb/rpc/server"
	"github.com/ValentinKolb/triedb/rpc/transport"
	"github.com/ValentinKolb/triedb/rpc/transport/http"
	"github.com/ValentinKolb/triedb/rpc/transport/tcp"
	"github.com/ValentinKolb/triedb/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the TrieDB server",
		Long:    `Start the TrieDB server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TRIEDB_<flag> (e.g. TRIEDB_BACKUP_FREQUENCY=60)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "transport"
	ServeCmd.PersistentFlags().String(key, "tcp", cmdUtil.WrapString("Stream transport of the server (tcp, unix)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9999", cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:9999 for tcp, /tmp/triedb.sock for unix)"))

	key = "http-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address of the HTTP listener serving POST /, /ws (websocket), /metrics and /healthz. Empty disables it"))

	key = "alphabet"
	ServeCmd.PersistentFlags().String(key, trie.DefaultAlphabet, cmdUtil.WrapString("The set of bytes keys may consist of"))

	key = "idle-timeout"
	ServeCmd.PersistentFlags().Int(key, int(resp.DefaultIdleTimeout.Seconds()), cmdUtil.WrapString("Seconds a connection may stay silent before it is closed, 0 disables the timeout"))

	key = "backup-path"
	ServeCmd.PersistentFlags().String(key, "data.trie", cmdUtil.WrapString("Path of the snapshot file. It is restored on startup, empty disables persistence"))

	key = "backup-frequency"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Seconds between two snapshots, 0 disables periodic snapshots"))

	key = "backup-final-flush"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Write a last snapshot when the server shuts down"))

	key = "backup-gcs-bucket"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional Google Cloud Storage bucket the snapshot is mirrored to. The mirror is used on startup when the local snapshot is missing"))

	key = "backup-gcs-object"
	ServeCmd.PersistentFlags().String(key, "data.trie", cmdUtil.WrapString("Object name of the snapshot mirror in the bucket"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds, 0 keeps the system default (only for tcp)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The linger time in seconds, 0 keeps the system default (only for tcp)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	transportType := common.TransportType(viper.GetString("transport"))
	switch transportType {
	case common.TransportTCP, common.TransportUnix:
	default:
		return fmt.Errorf("invalid transport %s (expected tcp or unix)", transportType)
	}

	alphabet := viper.GetString("alphabet")
	if _, err := trie.NewAlphabet(alphabet); err != nil {
		return fmt.Errorf("invalid alphabet: %v", err)
	}

	switch viper.GetString("log-level") {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %s (expected debug, info, warn or error)", viper.GetString("log-level"))
	}

	if viper.GetInt("backup-frequency") < 0 || viper.GetInt("idle-timeout") < 0 {
		return fmt.Errorf("backup-frequency and idle-timeout must not be negative")
	}

	// read the configuration from the command line flags and environment variables
	*serveCmdConfig = common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Type:            transportType,
			Endpoint:        viper.GetString("endpoint"),
			HTTPEndpoint:    viper.GetString("http-endpoint"),
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
		Backup: common.BackupConfig{
			Path:         viper.GetString("backup-path"),
			FrequencySec: viper.GetInt("backup-frequency"),
			FinalFlush:   viper.GetBool("backup-final-flush"),
			GCSBucket:    viper.GetString("backup-gcs-bucket"),
			GCSObject:    viper.GetString("backup-gcs-object"),
		},
		Alphabet:       alphabet,
		IdleTimeoutSec: viper.GetInt("idle-timeout"),
		LogLevel:       viper.GetString("log-level"),
	}

	return nil
}

// run starts the TrieDB server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(*serveCmdConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := server.NewEngine(ctx, *serveCmdConfig)
	if err != nil {
		return err
	}

	// Parse the transport
	var transports []transport.IRPCServerTransport
	switch serveCmdConfig.Transport.Type {
	case common.TransportTCP:
		transports = append(transports, tcp.NewTCPServerTransport())
	case common.TransportUnix:
		transports = append(transports, unix.NewUnixServerTransport())
	}
	if serveCmdConfig.Transport.HTTPEndpoint != "" {
		transports = append(transports, http.NewHttpServerTransport(http.Options{
			Ready:        engine.Ready,
			WriteMetrics: engine.WriteMetrics,
		}))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		engine,
		transports...,
	)

	return serv.Serve(ctx)
}

// Package common provides the configuration structures and the logging setup
// shared by the triedb server, client and command line tool.
//
// Key Components:
//
//   - ServerConfig: transport, storage (alphabet), backup and logging settings
//     of a server. String renders the effective configuration for the startup log.
//
//   - ClientConfig: transport, endpoints, connection pool size, retries and
//     timeout of a client.
//
//   - Logger: custom logging implementation for Dragonboat's logger package,
//     writing "LEVEL | package | message" lines. InitLoggers installs it and
//     applies the configured level to all triedb package loggers.
package common

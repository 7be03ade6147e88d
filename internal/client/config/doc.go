// Package config loads runtime configuration for the farmgate CLI.
//
// Sources, in increasing precedence: built-in defaults, an optional JSON file
// selected with -c or -config, then command-line flags.
//
//	-a string   address:port of the backend gRPC endpoint
//	-d string   local SQLite database holding the session token
//	-t int      per-request timeout (seconds)
//
// JSON example:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "farmgate.db",
//	  "request_timeout": "10s"
//	}
package config

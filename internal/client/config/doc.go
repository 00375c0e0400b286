// Package config loads runtime configuration for the docvault CLI.
//
// Values come from built-in defaults, then an optional JSON file (-c,
// -config or DOCVAULT_CONFIG), then command-line flags:
//
//	-a string   address:port of the docvault gRPC endpoint
//	-i int      online status check interval (seconds)
//	-t int      per-request timeout (seconds)
//	-d string   directory downloaded documents are written to
//
// JSON durations use timex.Duration, so "3s" and integer nanoseconds are
// both accepted:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "15s",
//	  "download_dir": "downloads"
//	}
package config

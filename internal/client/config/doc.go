// Package config loads runtime configuration for the TaskKeeper CLI.
//
// Sources, lowest precedence first: built-in defaults, an optional JSON file
// selected with -c or -config, and command-line flags.
//
//	-a string   base URL of the API (default http://127.0.0.1:8080)
//	-d string   directory for local state such as the session database
//	-t int      request timeout in seconds
//
// JSON keys are server_url, data_dir and request_timeout; the timeout
// accepts "15s" style strings or integer nanoseconds.
package config

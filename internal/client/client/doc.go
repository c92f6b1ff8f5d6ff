// Package client talks to the TaskKeeper REST API and bootstraps the CLI's
// local SQLite database.
//
// Client wraps every endpoint with typed requests and responses. Non-2xx
// responses become *APIError; a 401 also matches ErrUnauthorized, and
// transport failures match ErrUnavailable.
package client

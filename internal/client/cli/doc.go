// Package cli provides the interactive TaskKeeper command-line client.
//
// It wires configuration, the local session database and the API client
// into a REPL. The session token is kept in SQLite, so a login survives
// restarts until logout, logoutall or a rejected token clears it.
//
// Commands: signup, login, logout, logoutall, me, update k=v..., avatar
// <path>|rm, delete, task add|list|done|rm, help, exit.
package cli

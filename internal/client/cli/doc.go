// Package cli provides the interactive docvault command-line client.
//
// App wires configuration and the gRPC client into a small REPL: account
// commands (register, login, verification, password reset) and document
// commands (upload, list, share, view, download, accept, revoke, delete).
// A background watcher pings the server and flips the prompt between
// online and offline.
package cli

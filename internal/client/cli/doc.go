// Package cli provides the interactive gallery command-line client.
//
// It wires configuration, the local token database, the HTTP API client
// and a REPL. A background watcher probes the server and switches the
// prompt between online and offline.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command list.
package cli

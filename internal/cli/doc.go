// Package cli provides the interactive Cryptool command-line client.
//
// It wires configuration, the local encrypted store, the transport drivers
// and an interactive REPL gated by the access code. Typical flow: unlock (or
// set the initial code), then manage channels and exchange messages.
//
// Key features:
//   - Access control: unlock, lock, set-code, change-code (re-keying), reset
//   - Channel management: create, edit, delete, favorite, source binding
//   - Messaging: send, read, ack, plaintext visibility toggle
//   - Snapshot export/import
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

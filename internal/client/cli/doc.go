// Package cli provides the interactive farmgate command-line client.
//
// It wires configuration, the local token store and the gRPC auth client
// into a small REPL. A token saved by a previous run is restored and checked
// on start-up.
//
//	login    request a code by email, then enter it to sign in
//	me       show the signed-in profile
//	logout   end the session on the server and forget it locally
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

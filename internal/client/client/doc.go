// Package client talks to the farmgate backend on behalf of the CLI.
//
// GRPCClient wraps rpc.AuthServiceClient: it attaches
// the current bearer token to every call and maps gRPC status codes to
// sentinel errors (ErrUnavailable, ErrUnauthorized, common.ErrTooManyAttempts,
// common.ErrorValidation) that callers match with errors.Is.
//
// InitDatabase opens the local SQLite store and applies the embedded goose
// migrations.
package client

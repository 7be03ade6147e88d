// Package metadata stores small key/value facts about the local CLI session,
// such as the bearer token and the email it was issued for.
package metadata

import (
	"context"
)

const (
	KeyToken = "session_token"
	KeyEmail = "email"
)

// Repository is a key/value store. Get returns common.ErrorNotFound for an
// absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

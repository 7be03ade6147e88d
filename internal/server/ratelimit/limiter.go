// Package ratelimit throttles OTP requests and verification attempts per key
// (normalised email).
package ratelimit

import "context"

// Limiter decides whether another attempt for key is allowed. Reset forgets
// the attempts recorded for key, e.g. after a successful login.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Nop allows everything.
type Nop struct{}

func (Nop) Allow(context.Context, string) (bool, error) { return true, nil }
func (Nop) Reset(context.Context, string) error          { return nil }

// Package auth holds the token primitives behind sessions and one-time
// passwords: random id generation, secret hashing and constant-time
// comparison.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/farmgate/internal/common"
)

// Alphabet used for session ids and secrets. Ambiguous glyphs (0, 1, l, o)
// are left out; its 32 characters make byte>>3 an unbiased index.
const Alphabet = "abcdefghijkmnpqrstuvwxyz23456789"

// IDLength is the number of random bytes, and thus characters, in an id.
const IDLength = 24

// TokenSeparator joins the session id and secret in a bearer token.
const TokenSeparator = "."

const otpSpace = 1_000_000

// randReader is a seam for tests.
var randReader io.Reader = rand.Reader

// NewID returns IDLength characters drawn from Alphabet.
func NewID() (string, error) {
	b, err := common.GenerateRandByteArray(IDLength)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	defer common.WipeByteArray(b)

	var sb strings.Builder
	sb.Grow(IDLength)
	for _, c := range b {
		sb.WriteByte(Alphabet[c>>3])
	}
	return sb.String(), nil
}

// HashSecret returns the SHA-256 digest of secret.
func HashSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// ConstantTimeEqual compares two digests without leaking the position of the
// first difference. Inputs of different length are unequal.
func ConstantTimeEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// JoinToken builds the bearer token handed to the client.
func JoinToken(id, secret string) string {
	return id + TokenSeparator + secret
}

// SplitToken parses "<id>.<secret>". Anything other than exactly two parts is
// rejected.
func SplitToken(token string) (id, secret string, ok bool) {
	parts := strings.Split(token, TokenSeparator)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// GenerateOTPCode returns a six digit code, uniform over 000000..999999.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(randReader, big.NewInt(otpSpace))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

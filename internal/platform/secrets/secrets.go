// Package secrets generates and compares guest credentials: access codes, one-time invite
// tokens and session tokens.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strings"
)

// AccessCodeAlphabet omits look-alike characters (0/O, 1/I/L).
const AccessCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	AccessCodeLength = 6
	tokenBytes       = 32
)

// NewAccessCode returns a random code from AccessCodeAlphabet.
func NewAccessCode() (string, error) {
	var sb strings.Builder
	size := big.NewInt(int64(len(AccessCodeAlphabet)))
	for i := 0; i < AccessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		sb.WriteByte(AccessCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeAccessCode uppercases and strips spaces and dashes guests type in.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(code)))
}

// NewToken returns 32 random bytes encoded as unpadded URL-safe base64.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 of token. Only hashes of invite tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Equal compares two secrets in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

package secrets

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestNewAccessCode(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewAccessCode()
		if err != nil {
			t.Fatalf("NewAccessCode() err=%v", err)
		}
		if len(code) != AccessCodeLength {
			t.Fatalf("len(%q)=%d", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(AccessCodeAlphabet, r) {
				t.Fatalf("code %q has character %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("only %d distinct codes out of 50", len(seen))
	}
}

func TestNewTokenAndHash(t *testing.T) {
	t.Parallel()

	tok, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken() err=%v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != 32 {
		t.Fatalf("token %q decodes to %d bytes, err=%v", tok, len(raw), err)
	}
	h := HashToken(tok)
	if len(h) != 64 || h != HashToken(tok) || h == HashToken(tok+"x") {
		t.Fatalf("HashToken not a stable sha256 hex: %q", h)
	}
}

func TestNormalizeAccessCodeAndEqual(t *testing.T) {
	t.Parallel()

	if got := NormalizeAccessCode(" abc-12 3 "); got != "ABC123" {
		t.Fatalf("NormalizeAccessCode()=%q", got)
	}
	if !Equal("ABC123", "ABC123") || Equal("ABC123", "ABC124") || Equal("ABC123", "ABC12") {
		t.Fatalf("Equal() mismatch")
	}
}

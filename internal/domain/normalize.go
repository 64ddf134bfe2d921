package domain

import (
	"strings"
	"unicode"
)

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for guest names and group display names.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims and lowercases an email address. Uniqueness checks compare normalized values.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone keeps digits and a single leading '+'.
// Bare 10-digit numbers are assumed to be North American and get a +1 prefix.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	plus := strings.HasPrefix(s, "+")
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	switch {
	case plus:
		return "+" + digits
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return digits
	}
}

// CanonicalGroupKey derives the uniqueness key for a household name so that
// "The Smith Family", "smith  family" and "Smith household" all collide.
func CanonicalGroupKey(name string) string {
	k := strings.ToLower(NormalizeHumanName(name))
	k = strings.TrimPrefix(k, "the ")
	for _, suffix := range []string{" family", " household", " house"} {
		if strings.HasSuffix(k, suffix) && len(k) > len(suffix) {
			k = strings.TrimSuffix(k, suffix)
			break
		}
	}
	k = strings.Map(func(r rune) rune {
		if r == '\'' || r == '’' {
			return -1
		}
		return r
	}, k)
	return strings.TrimSpace(k)
}

package db

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeUsername lowercases a username after trimming and NFC
// normalization, so that lookups and uniqueness behave the same no matter
// how the client composed the input.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(username)))
}

// NormalizeEmail applies the same normalization to email addresses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(email)))
}

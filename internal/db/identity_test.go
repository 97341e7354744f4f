package db

import "testing"

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "ChaiAurCode", "chaiaurcode"},
		{"trims whitespace", "  alice  ", "alice"},
		{"already normalized", "bob", "bob"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		// NFC: e + combining acute composes to the single codepoint.
		{"unicode composition", "cafe\u0301", "caf\u00e9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeUsername(tt.input); got != tt.want {
				t.Errorf("NormalizeUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail(" Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

package engine

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full guid", "A1B2C3D4E5F60718293A4B5C6D7E8F90", "a1b2c3d4"},
		{"already short", "a1b2c3d4", "a1b2c3d4"},
		{"mixed case prefix", "AbCdEf12", "abcdef12"},
		{"shorter than prefix", "ABC", "abc"},
		{"surrounding space", "  A1B2C3D4E5  ", "a1b2c3d4"},
		{"empty", "", ""},
		{"multibyte runes", "ÄÖÜßÉÈÊËxyz", "äöüßéèêë"},
		{"multibyte exactly eight", "ÄÖÜßÉÈÊË", "äöüßéèêë"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "vid", "vid"},
		{"colour codes", "^1S^7uper^2Boyy", "SuperBoyy"},
		{"trailing caret kept", "olz^", "olz^"},
		{"whitespace collapsed", "  car   ^3rier  ", "car rier"},
		{"control characters", "bo\x00b\tby", "bob by"},
		{"nfc", "e\u0301lite", "\u00e9lite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

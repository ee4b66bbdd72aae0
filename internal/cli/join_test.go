package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"plain name", "Alice", true},
		{"padded name", "  Alice  ", true},
		{"two words", "Mary Ann", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"contains digits", "Alice2", false},
		{"too short", "Al", false},
		{"unicode counts runes", "Åsa", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateName(tc.input)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

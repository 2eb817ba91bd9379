package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOldEnough(t *testing.T) {
	now := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		birth string
		want  bool
	}{
		{"2009-06-15", true},
		{"2009-06-16", false},
		{"1990-01-01", true},
		{"2020-01-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.birth, func(t *testing.T) {
			birth, err := ParseBirthDate(tt.birth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, OldEnough(birth, now, 15))
		})
	}
}

func TestValidatePseudo(t *testing.T) {
	for _, ok := range []string{"abc", "alice_42", "j.doe", "a-b-c", "sixteen_chars_ok"} {
		assert.NoError(t, validatePseudo(ok), ok)
	}
	for _, bad := range []string{"", "ab", "seventeen_chars_x", "has space", "semi;colon"} {
		assert.Error(t, validatePseudo(bad), bad)
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, validateEmail("email", "alice+tag@mail.example.org"))
	assert.Error(t, validateEmail("email", "alice@localhost"))
	assert.Error(t, validateEmail("email", "@example.com"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"5 characters", strings.Repeat("a", 5), true},
		{"6 characters", strings.Repeat("a", 6), false},
		{"64 characters", strings.Repeat("a", 64), false},
		{"65 characters", strings.Repeat("a", 65), true},
		{"36 two-byte characters", strings.Repeat("é", 36), false},
		{"40 two-byte characters", strings.Repeat("é", 40), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "password", verr.Field)
		})
	}
}

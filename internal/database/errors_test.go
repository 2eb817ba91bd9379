package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstraintColumn(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"constraint failed: UNIQUE constraint failed: users.email (2067)", "email"},
		{"UNIQUE constraint failed: users.pseudo", "pseudo"},
		{"UNIQUE constraint failed: t.a, t.b", "a"},
		{"disk I/O error", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, constraintColumn(tt.msg), tt.msg)
	}
}

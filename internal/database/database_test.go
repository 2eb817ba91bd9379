package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithPragmas(t *testing.T) {
	assert.Equal(t, "./discordin.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite",
		withPragmas("./discordin.db"))
	assert.Equal(t, "file:discordin.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite",
		withPragmas("file:discordin.db?mode=rwc"))
}

func TestNew_KeepsExistingQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discordin.db")

	db, err := New("file:" + path + "?mode=rwc")
	require.NoError(t, err)
	defer db.Close()

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

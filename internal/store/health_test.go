package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_ReportsOKForFreshDatabase(t *testing.T) {
	db, err := Open(Config{Path: "file::memory:?cache=shared&_busy_timeout=5000"})
	require.NoError(t, err)
	defer db.Close()

	status := db.Health(context.Background())
	assert.True(t, status.OK)
	assert.Equal(t, "ok", status.Detail)
}

func TestHealth_ReportsFailureOnClosedConnection(t *testing.T) {
	db, err := Open(Config{Path: "file::memory:?cache=shared&_busy_timeout=5000"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	status := db.Health(context.Background())
	assert.False(t, status.OK)
}

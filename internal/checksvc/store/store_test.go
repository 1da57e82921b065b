package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(Migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"migrations/000001_create_style_reports.down.sql",
		"migrations/000001_create_style_reports.up.sql",
	}, files)

	up, err := fs.ReadFile(Migrations, "migrations/000001_create_style_reports.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS style_reports")
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(errors.New("connection reset by peer")))
	assert.False(t, retryable(context.Canceled))
	assert.False(t, retryable(fmt.Errorf("query: %w", context.DeadlineExceeded)))
}

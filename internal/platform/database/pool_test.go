package database

import (
	"context"
	"testing"

	"civreg/internal/platform/config"
	"civreg/pkg/platform/sentinel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyURLReturnsNilPool(t *testing.T) {
	pool, err := New(context.Background(), config.Database{})
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestNilPool(t *testing.T) {
	var pool *Pool
	ctx := context.Background()

	assert.ErrorIs(t, pool.Health(ctx), ErrNotConfigured)
	assert.ErrorIs(t, pool.Migrate(ctx), ErrNotConfigured)
	assert.ErrorIs(t, pool.Health(ctx), sentinel.ErrUnavailable)
	assert.NoError(t, pool.Close())
	assert.Zero(t, pool.Stats().OpenConnections)
	assert.NotPanics(t, pool.RecordPoolStats)
}

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gotchi/internal/config"
	"github.com/cory-johannsen/gotchi/internal/storage/postgres"
	"github.com/cory-johannsen/gotchi/internal/testutil"
)

func TestPool_HealthAndStats(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)

	require.NoError(t, pc.Pool.Health(context.Background(), 5*time.Second))

	st := pc.Pool.Stats()
	assert.Equal(t, pc.Config.MaxConns, st.Max)
	assert.GreaterOrEqual(t, st.Total, st.Idle)
}

func TestNewPool_GivesUpWhenContextEnds(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "nobody", Name: "none", SSLMode: "disable",
		MaxConns: 2, MinConns: 0, MaxConnLifetime: time.Minute,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := postgres.NewPool(ctx, cfg)
	assert.Error(t, err)
}

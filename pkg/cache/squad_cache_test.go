package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/squad-optimizer/pkg/logger"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

func newTestCache(t *testing.T) (*SquadCacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSquadCacheService(client, logger.NewDiscardLogger()), mr
}

func TestSquadCache_CandidatePoolRoundTripAndExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	pool := []types.Candidate{
		{ID: "1", Name: "Alisson", Position: "Goalkeeper", PerformanceScore: 71.2, MarketValue: 28, Nationality: "Brazil"},
		{ID: "2", Name: "Saka", Position: "Right Winger", PerformanceScore: 88.4, MarketValue: 140},
	}
	require.NoError(t, c.SetCandidatePool(ctx, "optimization_final_input", pool, time.Minute))
	assert.True(t, mr.Exists("pool:optimization_final_input"))

	got, err := c.GetCandidatePool(ctx, "optimization_final_input")
	require.NoError(t, err)
	assert.Equal(t, pool, got)

	mr.FastForward(2 * time.Minute)
	_, err = c.GetCandidatePool(ctx, "optimization_final_input")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestSquadCache_LastSquadLifecycle(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, err := c.GetLastSquad(ctx, "session-a")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	first := &types.SquadReport{RosterID: uuid.New(), Formation: "4-3-3", TotalScore: 100}
	second := &types.SquadReport{RosterID: uuid.New(), Formation: "3-5-2", TotalScore: 120}

	require.NoError(t, c.SetLastSquad(ctx, "session-a", first, time.Hour))
	require.NoError(t, c.SetLastSquad(ctx, "session-a", second, time.Hour))
	require.NoError(t, c.SetLastSquad(ctx, "session-b", first, time.Hour))

	got, err := c.GetLastSquad(ctx, "session-a")
	require.NoError(t, err)
	assert.Equal(t, second.RosterID, got.RosterID)
	assert.Equal(t, "3-5-2", got.Formation)

	require.NoError(t, c.ClearLastSquad(ctx, "session-a"))
	require.NoError(t, c.ClearLastSquad(ctx, "session-a"))
	_, err = c.GetLastSquad(ctx, "session-a")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	got, err = c.GetLastSquad(ctx, "session-b")
	require.NoError(t, err)
	assert.Equal(t, first.RosterID, got.RosterID)

	assert.Error(t, c.SetLastSquad(ctx, "", first, time.Hour))
}

func TestSquadCache_StatusAndFlush(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetCandidatePool(ctx, "file", []types.Candidate{{ID: "1"}}, time.Minute))
	require.NoError(t, c.SetLastSquad(ctx, "a", &types.SquadReport{}, time.Minute))
	require.NoError(t, c.SetLastSquad(ctx, "b", &types.SquadReport{}, time.Minute))

	status := c.GetStatus(ctx)
	assert.Equal(t, true, status["connected"])
	assert.Equal(t, 1, status["pool_keys"])
	assert.Equal(t, 2, status["squad_keys"])

	require.NoError(t, c.FlushSquads(ctx))
	status = c.GetStatus(ctx)
	assert.Equal(t, 0, status["squad_keys"])
	assert.Equal(t, 1, status["pool_keys"])
}

func TestSquadCache_ReportsDisconnectedServer(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, c.Ping(ctx))
	status := c.GetStatus(ctx)
	assert.Equal(t, false, status["connected"])
}

package cache

import (
	"brandwatch/internal/model"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorCache(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewMonitorCache(client, time.Minute)
	ctx := context.Background()

	_, found, err := c.GetActive(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetActive(ctx, "acme", []*model.Monitor{{ID: "m-1", BrandID: "acme", Keywords: []string{"acme"}}}))
	got, found, err := c.GetActive(ctx, "acme")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "m-1", got[0].ID)

	mr.FastForward(2 * time.Minute)
	_, found, err = c.GetActive(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, found, "entries expire after the ttl")
}

func TestMonitorCacheEmptyListIsAHit(t *testing.T) {
	_, client := newTestClient(t)
	c := NewMonitorCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetActive(ctx, "quiet", nil))
	got, found, err := c.GetActive(ctx, "quiet")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)
}

func TestMonitorCacheInvalidate(t *testing.T) {
	_, client := newTestClient(t)
	c := NewMonitorCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetActive(ctx, "acme", []*model.Monitor{{ID: "m-1"}}))
	require.NoError(t, c.SetActive(ctx, "", []*model.Monitor{{ID: "m-1"}, {ID: "m-2"}}))
	require.NoError(t, c.Invalidate(ctx, "acme"))

	_, found, _ := c.GetActive(ctx, "acme")
	assert.False(t, found)
	_, found, _ = c.GetActive(ctx, "")
	assert.False(t, found)
}

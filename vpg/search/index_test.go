package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashProviderIsDeterministic(t *testing.T) {
	p := NewHashProvider(64)
	assert.Equal(t, 64, p.Dimensions())

	a, err := p.Embed(context.Background(), []string{"beach sunset", "beach sunset"})
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexQuery(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider("hash", 4096)
	require.NoError(t, err)
	idx := NewIndex(provider)

	require.NoError(t, idx.Upsert(ctx, "a", "image 2024 july beach sunset"))
	require.NoError(t, idx.Upsert(ctx, "b", "video 2023 december snow mountain"))
	require.NoError(t, idx.Upsert(ctx, "c", "image 2024 july beach"))
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Query(ctx, "beach sunset", 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a", hits[0].ID)

	hits, err = idx.Query(ctx, "snow", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)

	idx.Remove("b")
	hits, err = idx.Query(ctx, "snow", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewProvider("onnx", 384)
	assert.Error(t, err)
}

func TestIndexUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(NewHashProvider(4096))

	require.NoError(t, idx.Upsert(ctx, "a", "forest"))
	require.NoError(t, idx.Upsert(ctx, "a", "desert"))

	hits, err := idx.Query(ctx, "forest", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 1, idx.Len())
}

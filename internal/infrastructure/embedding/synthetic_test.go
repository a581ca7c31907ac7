package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticProviderDeterministic(t *testing.T) {
	p := NewSyntheticProvider("synthetic", 768)
	ctx := context.Background()

	a, err := p.Embed(ctx, []string{"la prima volta"})
	require.NoError(t, err)
	b, err := p.Embed(ctx, []string{"la prima volta"})
	require.NoError(t, err)

	require.Len(t, a, 1)
	assert.Equal(t, a[0], b[0])
	assert.Len(t, a[0], 768)
}

func TestSyntheticProviderDistinctInputs(t *testing.T) {
	p := NewSyntheticProvider("synthetic", 64)

	vecs, err := p.Embed(context.Background(), []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestSyntheticProviderUnitNorm(t *testing.T) {
	p := NewSyntheticProvider("synthetic", 128)

	vecs, err := p.Embed(context.Background(), []string{"some chapter content"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestSyntheticProviderDefaults(t *testing.T) {
	p := NewSyntheticProvider("", 0)

	assert.Equal(t, "synthetic", p.Model())
	assert.Equal(t, 768, p.Dimension())
}

package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFormsSingleCycle(t *testing.T) {
	region := make([]byte, PointerWidth*64)
	require.NoError(t, Build(region, 12345))
	assert.NoError(t, Verify(region))
}

func TestBuildRejectsTinyRegion(t *testing.T) {
	region := make([]byte, PointerWidth)
	err := Build(region, 1)
	assert.ErrorIs(t, err, ErrChainBuild)
}

func TestBuildDiffersAcrossSeeds(t *testing.T) {
	a := make([]byte, PointerWidth*32)
	b := make([]byte, PointerWidth*32)
	require.NoError(t, Build(a, 1))
	require.NoError(t, Build(b, 2))
	assert.NotEqual(t, a, b)
}

func TestBuildDeterministicForSameSeed(t *testing.T) {
	a := make([]byte, PointerWidth*32)
	b := make([]byte, PointerWidth*32)
	require.NoError(t, Build(a, 7))
	require.NoError(t, Build(b, 7))
	assert.Equal(t, a, b)
}

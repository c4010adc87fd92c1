package mhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	h1 := New64()
	h2 := New64()
	require.Equal(t, h1.Sum64("hello"), h2.Sum64("hello"))
	require.Equal(t, h1.Sum32("hello"), h2.Sum32("hello"))
}

func TestDistinctTokensUsuallyDiffer(t *testing.T) {
	h := New64()
	require.NotEqual(t, h.Sum64("hello"), h.Sum64("world"))
	require.NotEqual(t, h.Sum32("hello"), h.Sum32("world"))
}

func TestSeedSensitivity(t *testing.T) {
	a := newWithSeed(Algorithm64, 1)
	b := newWithSeed(Algorithm64, 2)
	require.NotEqual(t, a.Sum64("token"), b.Sum64("token"))
}

func TestAlgorithmReported(t *testing.T) {
	require.Equal(t, Algorithm32, New32().Algorithm())
	require.Equal(t, Algorithm64, New64().Algorithm())
	require.Equal(t, Algorithm64, New(Algorithm64).Algorithm())
	require.Equal(t, Algorithm32, New(Algorithm32).Algorithm())
}

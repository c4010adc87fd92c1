package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemReadAbsent(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	data, ok, err := m.Read(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, data)

	size, err := m.Size(ctx, "missing")
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestMemAppendGrows(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	n, err := m.Append(ctx, "log", []byte("abc"))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = m.Append(ctx, "log", []byte("de"))
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	data, ok, err := m.Read(ctx, "log")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("abcde"), data)
}

func TestMemReadRangePastEnd(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	_, err := m.Append(ctx, "f", []byte("hello"))
	require.NoError(t, err)

	data, ok, err := m.ReadRange(ctx, "f", 2, 100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("llo"), data)
}

func TestMemWriteReplaces(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	require.NoError(t, m.Write(ctx, "f", []byte("aaaa")))
	require.NoError(t, m.Write(ctx, "f", []byte("b")))
	data, _, err := m.Read(ctx, "f")
	require.NoError(t, err)
	require.Equal(t, []byte("b"), data)
}

func TestMemClearAll(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	require.NoError(t, m.Write(ctx, "a", []byte("1")))
	require.NoError(t, m.Write(ctx, "b", []byte("2")))
	require.NoError(t, m.ClearAll(ctx))
	names, err := m.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestMemRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMem()
	require.NoError(t, m.Remove(ctx, "never-existed"))
	require.NoError(t, m.Write(ctx, "a", []byte("1")))
	require.NoError(t, m.Remove(ctx, "a"))
	require.NoError(t, m.Remove(ctx, "a"))
	_, ok, err := m.Read(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

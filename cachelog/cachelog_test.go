package cachelog

import (
	"context"
	"strings"
	"testing"

	"github.com/rpcpool/ftsearch/blobstore"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadRangeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMem()
	log := Open(store, "word_cache.bin")

	docs := []TokenizedDoc{
		{ID: 1, Tokens: []string{"hello", "world"}},
		{ID: 2, Tokens: []string{"foo"}},
	}
	size, err := log.AppendBatch(ctx, docs)
	require.NoError(t, err)
	require.Greater(t, size, uint64(0))

	got, err := ReadRange(ctx, store, "word_cache.bin", 0, size)
	require.NoError(t, err)
	require.Equal(t, docs, got)
}

func TestReadRangeOnMissingLogReturnsNil(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMem()
	got, err := ReadRange(ctx, store, "nope.bin", 0, 10)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestReadRangeTruncatedTailStopsCleanly(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMem()
	log := Open(store, "c.bin")

	docs := []TokenizedDoc{
		{ID: 1, Tokens: []string{"a"}},
		{ID: 2, Tokens: []string{"b", "c"}},
	}
	size, err := log.AppendBatch(ctx, docs)
	require.NoError(t, err)

	// Truncate: read only up to a point partway into the second record.
	full, _, err := store.ReadRange(ctx, "c.bin", 0, size)
	require.NoError(t, err)
	firstLen := len(Encode(docs[0]))
	require.NoError(t, store.Write(ctx, "c.bin", full[:firstLen+3]))

	got, err := ReadRange(ctx, store, "c.bin", 0, uint64(firstLen+3))
	require.NoError(t, err)
	require.Equal(t, []TokenizedDoc{docs[0]}, got)
}

func TestEncodeClampsOverlongToken(t *testing.T) {
	longToken := strings.Repeat("x", maxTokenBytes+100)
	doc := TokenizedDoc{ID: 7, Tokens: []string{longToken}}
	encoded := Encode(doc)

	decoded, consumed, ok := decodeOne(encoded)
	require.True(t, ok)
	require.Equal(t, len(encoded), consumed)
	require.Len(t, decoded.Tokens[0], maxTokenBytes)
}

func TestAppendBatchEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMem()
	log := Open(store, "x.bin")
	size, err := log.AppendBatch(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, size)
}

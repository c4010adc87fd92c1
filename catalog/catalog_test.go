package catalog

import (
	"context"
	"testing"

	"github.com/rpcpool/ftsearch/blobstore"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMem()
	c := New(store)

	c.UpdateSegment(Word, "word_seg_1.bin", 0, 100, 10, true)
	c.AddAddedId(1)
	c.AddAddedId(2)
	c.AddDeletedId(2)
	c.RemoveAddedId(2)

	require.NoError(t, c.Save(ctx))

	reloaded := New(store)
	require.NoError(t, reloaded.Load(ctx))

	segs := reloaded.Segments(Word)
	require.Len(t, segs, 1)
	require.Equal(t, SegmentDescriptor{Filename: "word_seg_1.bin", Start: 0, End: 100, TokenCount: 10}, segs[0])

	require.True(t, reloaded.IsAdded(1))
	require.False(t, reloaded.IsAdded(2))
	require.True(t, reloaded.IsDeleted(2))
	require.True(t, reloaded.HasDocument(1))
	require.True(t, reloaded.HasDocument(2))
	require.False(t, reloaded.HasDocument(3))
}

func TestEmptyIdSetsRemoveTheirBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMem()
	c := New(store)
	c.AddAddedId(1)
	require.NoError(t, c.Save(ctx))

	_, ok, err := store.Read(ctx, addedFilename)
	require.NoError(t, err)
	require.True(t, ok)

	c.RemoveAddedId(1)
	require.NoError(t, c.Save(ctx))

	_, ok, err = store.Read(ctx, addedFilename)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadOnEmptyStoreYieldsEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMem()
	c := New(store)
	require.NoError(t, c.Load(ctx))
	require.Empty(t, c.Segments(Word))
	require.Empty(t, c.Segments(Char))
	require.False(t, c.HasDocument(1))
}

func TestUpdateSegmentExtendsTail(t *testing.T) {
	c := New(blobstore.NewMem())
	c.UpdateSegment(Word, "word_seg_1.bin", 0, 50, 5, true)
	c.UpdateSegment(Word, "word_seg_1.bin", 0, 90, 9, false)

	segs := c.Segments(Word)
	require.Len(t, segs, 1)
	require.EqualValues(t, 90, segs[0].End)
	require.EqualValues(t, 9, segs[0].TokenCount)
}

func TestUpdateSegmentPanicsOnNonTailMutation(t *testing.T) {
	c := New(blobstore.NewMem())
	c.UpdateSegment(Word, "word_seg_1.bin", 0, 50, 5, true)
	c.UpdateSegment(Word, "word_seg_2.bin", 50, 80, 3, true)

	require.Panics(t, func() {
		c.UpdateSegment(Word, "word_seg_1.bin", 0, 60, 6, false)
	})
}

func TestNextSegmentNumber(t *testing.T) {
	c := New(blobstore.NewMem())
	require.Equal(t, 1, c.NextSegmentNumber(Word))
	c.UpdateSegment(Word, "word_seg_1.bin", 0, 10, 1, true)
	require.Equal(t, 2, c.NextSegmentNumber(Word))

	c.Reset()
	require.Equal(t, 1, c.NextSegmentNumber(Word))
}

func TestDeletedIdsAreMonotone(t *testing.T) {
	c := New(blobstore.NewMem())
	c.AddAddedId(1)
	c.AddDeletedId(1)
	c.RemoveAddedId(1)
	require.True(t, c.IsDeleted(1))
	require.False(t, c.IsAdded(1))

	// Re-adding after delete is the engine's job to reject; the catalog
	// itself just records sets and does not enforce that policy.
	c.AddAddedId(1)
	require.True(t, c.IsAdded(1))
	require.True(t, c.IsDeleted(1))
}

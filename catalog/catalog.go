// Package catalog implements the meta manager: the durable catalog of
// segment descriptors plus the added-id and tombstone sets. It is grounded
// on github.com/rpcpool/yellowstone-faithful/indexmeta's "load a small JSON
// sidecar, mutate in memory, save wholesale" shape, combined with
// gsfa/manifest.Manifest's tail-only-mutable descriptor list discipline.
package catalog

import (
	"context"
	"fmt"

	"github.com/rpcpool/ftsearch/blobstore"

	jsoniter "github.com/json-iterator/go"
)

const (
	metaFilename    = "search_meta.json"
	addedFilename   = "added_ids.bin"
	deletedFilename = "deleted_ids.bin"

	idRecordSeparator = 0x1E
)

// SegmentKind distinguishes the word and character pipelines; each keeps
// its own segment list, log file, and thresholds.
type SegmentKind uint8

const (
	Word SegmentKind = iota
	Char
)

func (k SegmentKind) String() string {
	if k == Word {
		return "word"
	}
	return "char"
}

// SegmentDescriptor is one catalogued segment: the half-open byte range
// [Start, End) of the log it was built from, and the token count that
// range covers.
type SegmentDescriptor struct {
	Filename   string `json:"filename"`
	Start      uint64 `json:"start"`
	End        uint64 `json:"end"`
	TokenCount uint64 `json:"tokenCount"`
}

// metaDoc is the on-disk shape of search_meta.json.
type metaDoc struct {
	WordSegments []SegmentDescriptor `json:"wordSegments"`
	CharSegments []SegmentDescriptor `json:"charSegments"`
}

// Catalog holds the in-memory catalog state and knows how to load/save it
// against a blobstore.Store. It is not safe for concurrent use; callers
// must serialize access the same way the rest of the core does.
type Catalog struct {
	store blobstore.Store

	wordSegments []SegmentDescriptor
	charSegments []SegmentDescriptor

	added   map[uint32]struct{}
	deleted map[uint32]struct{}
	// addedOrder/deletedOrder preserve insertion order so Save emits a
	// deterministic id-stream byte layout across runs.
	addedOrder   []uint32
	deletedOrder []uint32
}

// New returns an empty, unloaded catalog backed by store.
func New(store blobstore.Store) *Catalog {
	return &Catalog{
		store:   store,
		added:   make(map[uint32]struct{}),
		deleted: make(map[uint32]struct{}),
	}
}

// Load reads search_meta.json, added_ids.bin, and deleted_ids.bin from the
// store, replacing all in-memory state. A missing file of any kind is
// treated as an empty catalog for that piece, not an error.
func (c *Catalog) Load(ctx context.Context) error {
	c.wordSegments = nil
	c.charSegments = nil
	c.added = make(map[uint32]struct{})
	c.deleted = make(map[uint32]struct{})
	c.addedOrder = nil
	c.deletedOrder = nil

	raw, ok, err := c.store.Read(ctx, metaFilename)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", metaFilename, err)
	}
	if ok && len(raw) > 0 {
		var doc metaDoc
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("catalog: decode %s: %w", metaFilename, err)
		}
		c.wordSegments = doc.WordSegments
		c.charSegments = doc.CharSegments
	}

	addedIds, err := readIDStream(ctx, c.store, addedFilename)
	if err != nil {
		return err
	}
	for _, id := range addedIds {
		c.added[id] = struct{}{}
		c.addedOrder = append(c.addedOrder, id)
	}

	deletedIds, err := readIDStream(ctx, c.store, deletedFilename)
	if err != nil {
		return err
	}
	for _, id := range deletedIds {
		c.deleted[id] = struct{}{}
		c.deletedOrder = append(c.deletedOrder, id)
	}

	return nil
}

// Save rewrites search_meta.json wholesale, and rewrites each id-set blob
// wholesale — except that an empty set removes its blob rather than
// writing an empty one, per spec.
func (c *Catalog) Save(ctx context.Context) error {
	doc := metaDoc{WordSegments: c.wordSegments, CharSegments: c.charSegments}
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalog: encode %s: %w", metaFilename, err)
	}
	if err := c.store.Write(ctx, metaFilename, raw); err != nil {
		return fmt.Errorf("catalog: write %s: %w", metaFilename, err)
	}

	if err := writeIDStream(ctx, c.store, addedFilename, c.addedOrder); err != nil {
		return err
	}
	if err := writeIDStream(ctx, c.store, deletedFilename, c.deletedOrder); err != nil {
		return err
	}
	return nil
}

// Reset clears all in-memory state, as clearAll requires; it does not
// touch the store itself (the engine issues store.ClearAll separately).
func (c *Catalog) Reset() {
	c.wordSegments = nil
	c.charSegments = nil
	c.added = make(map[uint32]struct{})
	c.deleted = make(map[uint32]struct{})
	c.addedOrder = nil
	c.deletedOrder = nil
}

func (c *Catalog) segments(kind SegmentKind) []SegmentDescriptor {
	if kind == Word {
		return c.wordSegments
	}
	return c.charSegments
}

// Segments returns the catalogued descriptors for kind, in creation order.
// The returned slice must not be mutated by the caller.
func (c *Catalog) Segments(kind SegmentKind) []SegmentDescriptor {
	return c.segments(kind)
}

// LastSegment returns the tail descriptor for kind, if any.
func (c *Catalog) LastSegment(kind SegmentKind) (SegmentDescriptor, bool) {
	segs := c.segments(kind)
	if len(segs) == 0 {
		return SegmentDescriptor{}, false
	}
	return segs[len(segs)-1], true
}

// NextSegmentNumber returns the 1-based number the next new segment of kind
// would carry. It reuses numbers after Reset/ClearAll, since numbering is
// derived from the current segment count rather than a monotonic counter;
// this is surprising on its own but safe, since segment filenames are only
// ever consulted through the catalog that names them.
func (c *Catalog) NextSegmentNumber(kind SegmentKind) int {
	return len(c.segments(kind)) + 1
}

// UpdateSegment either appends a new tail descriptor (isNew) or mutates the
// existing tail descriptor's End/TokenCount in place. Calling it with
// isNew=false when there is no existing tail, or with a filename that does
// not match the current tail's filename, is a programmer error and panics
// rather than returning an error: only the tail descriptor may ever be
// mutated, and that is a caller-discipline invariant, not a runtime
// condition an embedder should be recovering from.
func (c *Catalog) UpdateSegment(kind SegmentKind, filename string, start, end, tokenCount uint64, isNew bool) {
	desc := SegmentDescriptor{Filename: filename, Start: start, End: end, TokenCount: tokenCount}
	if isNew {
		if kind == Word {
			c.wordSegments = append(c.wordSegments, desc)
		} else {
			c.charSegments = append(c.charSegments, desc)
		}
		return
	}

	segs := c.segments(kind)
	if len(segs) == 0 {
		panic(fmt.Sprintf("catalog: UpdateSegment(isNew=false) on %s with no existing segments", kind))
	}
	tailIdx := len(segs) - 1
	if segs[tailIdx].Filename != filename {
		panic(fmt.Sprintf("catalog: UpdateSegment attempted to modify non-tail %s segment %q (tail is %q)", kind, filename, segs[tailIdx].Filename))
	}
	segs[tailIdx] = desc
}

// AddAddedId records id as added. No-op if already present.
func (c *Catalog) AddAddedId(id uint32) {
	if _, ok := c.added[id]; ok {
		return
	}
	c.added[id] = struct{}{}
	c.addedOrder = append(c.addedOrder, id)
}

// RemoveAddedId removes id from the added set (used when tombstoning).
func (c *Catalog) RemoveAddedId(id uint32) {
	if _, ok := c.added[id]; !ok {
		return
	}
	delete(c.added, id)
	for i, v := range c.addedOrder {
		if v == id {
			c.addedOrder = append(c.addedOrder[:i], c.addedOrder[i+1:]...)
			break
		}
	}
}

// AddDeletedId records id as tombstoned. Monotone: once added, never
// removed.
func (c *Catalog) AddDeletedId(id uint32) {
	if _, ok := c.deleted[id]; ok {
		return
	}
	c.deleted[id] = struct{}{}
	c.deletedOrder = append(c.deletedOrder, id)
}

// IsAdded reports whether id is in the added set.
func (c *Catalog) IsAdded(id uint32) bool {
	_, ok := c.added[id]
	return ok
}

// IsDeleted reports whether id is in the tombstone set.
func (c *Catalog) IsDeleted(id uint32) bool {
	_, ok := c.deleted[id]
	return ok
}

// HasDocument reports whether id has ever been seen: added or deleted.
func (c *Catalog) HasDocument(id uint32) bool {
	return c.IsAdded(id) || c.IsDeleted(id)
}

// DeletedCount returns the size of the tombstone set, for Status reporting.
func (c *Catalog) DeletedCount() int { return len(c.deleted) }

func readIDStream(ctx context.Context, store blobstore.Store, name string) ([]uint32, error) {
	raw, ok, err := store.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	var ids []uint32
	off := 0
	for off+5 <= len(raw) {
		id := uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24
		if raw[off+4] != idRecordSeparator {
			break
		}
		ids = append(ids, id)
		off += 5
	}
	return ids, nil
}

func writeIDStream(ctx context.Context, store blobstore.Store, name string, ids []uint32) error {
	if len(ids) == 0 {
		if err := store.Remove(ctx, name); err != nil {
			return fmt.Errorf("catalog: remove %s: %w", name, err)
		}
		return nil
	}
	buf := make([]byte, 0, len(ids)*5)
	for _, id := range ids {
		buf = append(buf, byte(id), byte(id>>8), byte(id>>16), byte(id>>24), idRecordSeparator)
	}
	if err := store.Write(ctx, name, buf); err != nil {
		return fmt.Errorf("catalog: write %s: %w", name, err)
	}
	return nil
}

// Package segment implements the on-disk inverted-index file format: a
// header, a dictionary sorted by (hash, token bytes) with collision
// resolution, a postings region, and a tokens region. It is grounded on
// github.com/rpcpool/yellowstone-faithful/compactindexsized — the same
// shape of "sorted hash table with an explicit collision-resolution walk"
// construction, adapted here to store raw postings instead of compactindex's
// fixed-width offsets.
package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/rpcpool/ftsearch/cachelog"
	"github.com/rpcpool/ftsearch/mhash"
	"github.com/valyala/bytebufferpool"
)

// Magic identifies a segment file: the ASCII bytes "INDX" read as a
// little-endian uint32.
const Magic uint32 = 0x494E4458

const (
	header32Size = 12
	header64Size = 16
	entry32Size  = 20
	// entry64Size is 28, four bytes more than the five 4/8-byte fields
	// (hash u64 + four u32s = 24B) sum to; the extra 4 bytes are a reserved,
	// always-zero field that pads the entry to its documented on-disk size.
	// See DESIGN.md for the reasoning.
	entry64Size = 28
)

// ErrCorruptIndex is returned by Load when the header magic is wrong or the
// recorded offsets cannot possibly fit the buffer.
var ErrCorruptIndex = errors.New("segment: corrupt index")

// entry is a decoded dictionary record plus its postings.
type entry struct {
	hash     uint64
	token    []byte
	postings []uint32
}

// Segment is a loaded, queryable inverted-index file.
type Segment struct {
	alg     mhash.Algorithm
	entries []entry
}

// Algorithm reports which hash width this segment was built with.
func (s *Segment) Algorithm() mhash.Algorithm { return s.alg }

// bucket accumulates postings for one unique token during Build.
type bucket struct {
	hash     uint64
	token    []byte
	postings []uint32
}

// Build turns a set of tokenized documents into one segment's bytes: it
// dedups tokens per document, groups postings by exact token with its hash,
// sorts entries by (hash, token bytes), then emits the
// header/dictionary/postings/tokens regions. It never errors; a blob-store
// write failure is the caller's concern.
func Build(docs []cachelog.TokenizedDoc, h mhash.Hash) []byte {
	index := make(map[string]*bucket)
	order := make([]*bucket, 0, len(docs))

	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc.Tokens))
		for _, tok := range doc.Tokens {
			if tok == "" {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}

			b, ok := index[tok]
			if !ok {
				b = &bucket{hash: hashOf(h, tok), token: []byte(tok)}
				index[tok] = b
				order = append(order, b)
			}
			b.postings = append(b.postings, doc.ID)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].hash != order[j].hash {
			return order[i].hash < order[j].hash
		}
		return bytes.Compare(order[i].token, order[j].token) < 0
	})

	return encode(order, h.Algorithm())
}

func hashOf(h mhash.Hash, token string) uint64 {
	if h.Algorithm() == mhash.Algorithm32 {
		return uint64(h.Sum32(token))
	}
	return h.Sum64(token)
}

func encode(buckets []*bucket, alg mhash.Algorithm) []byte {
	headerSize, entrySize := header32Size, entry32Size
	if alg == mhash.Algorithm64 {
		headerSize, entrySize = header64Size, entry64Size
	}

	entryCount := len(buckets)
	dictSize := entryCount * entrySize
	postingsStart := headerSize + dictSize

	totalPostings := 0
	totalTokenBytes := 0
	for _, b := range buckets {
		totalPostings += len(b.postings)
		totalTokenBytes += len(b.token) + 1 // +1 for the 0x00 terminator
	}
	postingsSize := totalPostings * 4
	tokensStart := postingsStart + postingsSize

	buf := make([]byte, tokensStart+totalTokenBytes)

	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(entryCount))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(tokensStart))
	if alg == mhash.Algorithm64 {
		binary.LittleEndian.PutUint32(buf[12:16], uint32(mhash.Algorithm64))
	}

	dictCursor := headerSize
	postingsCursor := postingsStart
	tokensCursor := tokensStart

	for _, b := range buckets {
		tokenOffset := uint32(tokensCursor)
		postingsOffset := uint32(postingsCursor)
		postingsLen := uint32(len(b.postings))

		if alg == mhash.Algorithm64 {
			binary.LittleEndian.PutUint64(buf[dictCursor:dictCursor+8], b.hash)
			binary.LittleEndian.PutUint32(buf[dictCursor+8:dictCursor+12], uint32(len(b.token)))
			binary.LittleEndian.PutUint32(buf[dictCursor+12:dictCursor+16], tokenOffset)
			binary.LittleEndian.PutUint32(buf[dictCursor+16:dictCursor+20], postingsOffset)
			binary.LittleEndian.PutUint32(buf[dictCursor+20:dictCursor+24], postingsLen)
			// buf[dictCursor+24:dictCursor+28] stays zero (reserved).
		} else {
			binary.LittleEndian.PutUint32(buf[dictCursor:dictCursor+4], uint32(b.hash))
			binary.LittleEndian.PutUint32(buf[dictCursor+4:dictCursor+8], uint32(len(b.token)))
			binary.LittleEndian.PutUint32(buf[dictCursor+8:dictCursor+12], tokenOffset)
			binary.LittleEndian.PutUint32(buf[dictCursor+12:dictCursor+16], postingsOffset)
			binary.LittleEndian.PutUint32(buf[dictCursor+16:dictCursor+20], postingsLen)
		}
		dictCursor += entrySize

		for _, id := range b.postings {
			binary.LittleEndian.PutUint32(buf[postingsCursor:postingsCursor+4], id)
			postingsCursor += 4
		}

		copy(buf[tokensCursor:tokensCursor+len(b.token)], b.token)
		tokensCursor += len(b.token)
		buf[tokensCursor] = 0x00
		tokensCursor++
	}

	return buf
}

// Load autodetects the header variant and parses a previously-built segment
// file. The 16-byte header's hashWidth tag is the discriminant: Load first
// reads the buffer as a 64-bit header and accepts that reading only if the
// tag at byte offset 12 equals 64, otherwise it falls back to the 12-byte
// 32-bit layout. Loading therefore succeeds whichever width a segment was
// built with; Search, however, hashes the term with the Hash it is given, so
// lookups only find tokens when that Hash matches the one used by Build.
func Load(buf []byte) (*Segment, error) {
	if len(buf) >= header64Size && binary.LittleEndian.Uint32(buf[12:16]) == uint32(mhash.Algorithm64) {
		return loadWithAlgorithm(buf, mhash.Algorithm64)
	}
	return loadWithAlgorithm(buf, mhash.Algorithm32)
}

// loadWithAlgorithm parses buf under the assumption that it was built with
// the given algorithm, validating every offset before trusting the buffer.
func loadWithAlgorithm(buf []byte, alg mhash.Algorithm) (*Segment, error) {
	headerSize, entrySize := header32Size, entry32Size
	if alg == mhash.Algorithm64 {
		headerSize, entrySize = header64Size, entry64Size
	}
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: truncated header", ErrCorruptIndex)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptIndex)
	}
	entryCount := binary.LittleEndian.Uint32(buf[4:8])
	tokensOffset := binary.LittleEndian.Uint32(buf[8:12])
	if alg == mhash.Algorithm64 {
		if binary.LittleEndian.Uint32(buf[12:16]) != uint32(mhash.Algorithm64) {
			return nil, fmt.Errorf("%w: hash width tag mismatch", ErrCorruptIndex)
		}
	}
	if uint64(tokensOffset) > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: tokens offset past end of file", ErrCorruptIndex)
	}

	dictEnd := uint64(headerSize) + uint64(entryCount)*uint64(entrySize)
	if dictEnd > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: dictionary overruns file", ErrCorruptIndex)
	}

	entries := make([]entry, 0, entryCount)
	cursor := headerSize
	var prevHash uint64
	for i := uint32(0); i < entryCount; i++ {
		var hash uint64
		var tokenByteLen, tokenOffset, postingsOffset, postingsLen uint32
		if alg == mhash.Algorithm64 {
			hash = binary.LittleEndian.Uint64(buf[cursor : cursor+8])
			tokenByteLen = binary.LittleEndian.Uint32(buf[cursor+8 : cursor+12])
			tokenOffset = binary.LittleEndian.Uint32(buf[cursor+12 : cursor+16])
			postingsOffset = binary.LittleEndian.Uint32(buf[cursor+16 : cursor+20])
			postingsLen = binary.LittleEndian.Uint32(buf[cursor+20 : cursor+24])
		} else {
			hash = uint64(binary.LittleEndian.Uint32(buf[cursor : cursor+4]))
			tokenByteLen = binary.LittleEndian.Uint32(buf[cursor+4 : cursor+8])
			tokenOffset = binary.LittleEndian.Uint32(buf[cursor+8 : cursor+12])
			postingsOffset = binary.LittleEndian.Uint32(buf[cursor+12 : cursor+16])
			postingsLen = binary.LittleEndian.Uint32(buf[cursor+16 : cursor+20])
		}
		cursor += entrySize

		if i > 0 && hash < prevHash {
			return nil, fmt.Errorf("%w: dictionary not sorted by hash", ErrCorruptIndex)
		}
		prevHash = hash

		tokenEnd := uint64(tokenOffset) + uint64(tokenByteLen)
		if tokenEnd > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: token bytes overrun file", ErrCorruptIndex)
		}
		postingsEnd := uint64(postingsOffset) + uint64(postingsLen)*4
		if postingsEnd > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: postings overrun file", ErrCorruptIndex)
		}

		token := make([]byte, tokenByteLen)
		copy(token, buf[tokenOffset:tokenEnd])

		postings := make([]uint32, postingsLen)
		for p := uint32(0); p < postingsLen; p++ {
			off := postingsOffset + p*4
			postings[p] = binary.LittleEndian.Uint32(buf[off : off+4])
		}

		entries = append(entries, entry{hash: hash, token: token, postings: postings})
	}

	return &Segment{alg: alg, entries: entries}, nil
}

// Search looks up term's postings: binary search on hash, a fast path when
// the match has no hash-colliding neighbor, and an explicit
// backward-then-forward walk through the colliding run otherwise, comparing
// raw UTF-8 token bytes to break ties.
func (s *Segment) Search(term string, h mhash.Hash) []uint32 {
	if s == nil || len(s.entries) == 0 {
		return nil
	}
	target := hashOf(h, term)

	lo, hi := 0, len(s.entries)
	idx := -1
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case s.entries[mid].hash < target:
			lo = mid + 1
		case s.entries[mid].hash > target:
			hi = mid
		default:
			idx = mid
			lo = hi // break out
		}
	}
	if idx == -1 {
		return nil
	}

	leftCollides := idx > 0 && s.entries[idx-1].hash == target
	rightCollides := idx < len(s.entries)-1 && s.entries[idx+1].hash == target
	if !leftCollides && !rightCollides {
		return s.entries[idx].postings
	}

	start := idx
	for start > 0 && s.entries[start-1].hash == target {
		start--
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	bb.Reset()
	_, _ = bb.WriteString(term)
	termBytes := bb.Bytes()

	for i := start; i < len(s.entries) && s.entries[i].hash == target; i++ {
		if bytes.Equal(s.entries[i].token, termBytes) {
			return s.entries[i].postings
		}
	}
	return nil
}

// EntryCount returns the number of dictionary entries, mainly for tests and
// diagnostics.
func (s *Segment) EntryCount() int { return len(s.entries) }

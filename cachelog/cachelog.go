// Package cachelog implements the intermediate cache: an append-only,
// byte-offset-addressable log of tokenized documents. One log exists per
// index type (word, char). Intake persists here before any segment is
// touched — if a process dies between an append and a catalog update, the
// tail segment is rebuilt from the log range. This mirrors the write-once,
// read-by-range role github.com/rpcpool/yellowstone-faithful/gsfa/linkedlog
// and gsfa/offsetstore play for their own domains.
package cachelog

import (
	"context"
	"encoding/binary"

	"github.com/rpcpool/ftsearch/blobstore"
)

// TokenizedDoc is a document after tokenization and dedup, ready to be
// framed into a log record or indexed into a segment.
type TokenizedDoc struct {
	ID     uint32
	Tokens []string
}

// recordSeparator terminates every log record, letting a tolerant reader
// detect a truncated write: decoding stops at the first record whose
// separator is missing.
const recordSeparator = 0x1E

// maxTokenBytes is the largest token length the u16 length prefix can
// represent; longer tokens are clamped (spec's documented, intentional
// lossy behavior — see SPEC_FULL.md, Open Question decision 2).
const maxTokenBytes = 0xFFFF

// Log is a handle to one append-only cache file.
type Log struct {
	store blobstore.Store
	name  string
}

// Open returns a handle to the named log file within store. It does not
// touch storage; the file is created lazily on first Append.
func Open(store blobstore.Store, name string) *Log {
	return &Log{store: store, name: name}
}

// Size returns the current length of the log file, or 0 if it has never
// been written to.
func (l *Log) Size(ctx context.Context) (uint64, error) {
	return l.store.Size(ctx, l.name)
}

// Encode frames a single TokenizedDoc into the on-disk record format:
// id(u32 LE) | tokenCount(u32 LE) | (tokenLen(u16 LE) | tokenBytes)* | 0x1E.
func Encode(doc TokenizedDoc) []byte {
	buf := make([]byte, 0, 8+len(doc.Tokens)*4)
	var head [8]byte
	binary.LittleEndian.PutUint32(head[0:4], doc.ID)
	binary.LittleEndian.PutUint32(head[4:8], uint32(len(doc.Tokens)))
	buf = append(buf, head[:]...)
	for _, tok := range doc.Tokens {
		tb := []byte(tok)
		if len(tb) > maxTokenBytes {
			tb = tb[:maxTokenBytes]
		}
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(tb)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, tb...)
	}
	buf = append(buf, recordSeparator)
	return buf
}

// AppendBatch frames every doc into one contiguous buffer and issues a
// single Append call, the core's crash-safety primitive: either the whole
// batch lands, or none of it does, and the added-id set is only updated
// after this call returns successfully.
func (l *Log) AppendBatch(ctx context.Context, docs []TokenizedDoc) (newSize uint64, err error) {
	if len(docs) == 0 {
		return l.Size(ctx)
	}
	buf := make([]byte, 0)
	for _, d := range docs {
		buf = append(buf, Encode(d)...)
	}
	return l.store.Append(ctx, l.name, buf)
}

// ReadRange decodes every complete record in the half-open byte range
// [start, end). It is tolerant of a truncated tail: if a record's declared
// length would run past the available bytes, or the trailing separator is
// missing, decoding stops and returns what was read so far rather than
// erroring, since a half-written trailing record is not a hard failure.
func ReadRange(ctx context.Context, store blobstore.Store, name string, start, end uint64) ([]TokenizedDoc, error) {
	if end <= start {
		return nil, nil
	}
	data, ok, err := store.ReadRange(ctx, name, start, end)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return decodeAll(data), nil
}

func decodeAll(data []byte) []TokenizedDoc {
	var docs []TokenizedDoc
	off := 0
	for {
		doc, consumed, ok := decodeOne(data[off:])
		if !ok {
			break
		}
		docs = append(docs, doc)
		off += consumed
	}
	return docs
}

// decodeOne decodes a single record from the front of buf, returning the
// number of bytes consumed (including the trailing separator). ok is false
// if buf does not contain a complete, well-formed record.
func decodeOne(buf []byte) (doc TokenizedDoc, consumed int, ok bool) {
	if len(buf) < 8 {
		return TokenizedDoc{}, 0, false
	}
	id := binary.LittleEndian.Uint32(buf[0:4])
	tokenCount := binary.LittleEndian.Uint32(buf[4:8])
	off := 8
	tokens := make([]string, 0, tokenCount)
	for i := uint32(0); i < tokenCount; i++ {
		if off+2 > len(buf) {
			return TokenizedDoc{}, 0, false
		}
		tl := int(binary.LittleEndian.Uint16(buf[off : off+2]))
		off += 2
		if off+tl > len(buf) {
			return TokenizedDoc{}, 0, false
		}
		tokens = append(tokens, string(buf[off:off+tl]))
		off += tl
	}
	if off >= len(buf) || buf[off] != recordSeparator {
		return TokenizedDoc{}, 0, false
	}
	off++
	return TokenizedDoc{ID: id, Tokens: tokens}, off, true
}

package ftsearch

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Status reports the engine's current shape: segment counts, the size of
// both intake logs, the tombstone count, and batch-mode state.
type Status struct {
	WordSegments  int
	CharSegments  int
	Deleted       int
	WordCacheSize uint64
	CharCacheSize uint64
	InBatch       bool
}

// String renders Status for logs and diagnostics, humanizing the two log
// sizes the way gsfa/worker.go prints index folder sizes with go-humanize.
func (s Status) String() string {
	return fmt.Sprintf(
		"wordSegments=%d charSegments=%d deleted=%d wordCache=%s charCache=%s inBatch=%t",
		s.WordSegments, s.CharSegments, s.Deleted,
		humanize.Bytes(s.WordCacheSize), humanize.Bytes(s.CharCacheSize),
		s.InBatch,
	)
}

// Package blobstore defines the narrow storage abstraction ftsearch depends
// on. Concrete backends (a sandboxed filesystem, a native filesystem, a
// cloud blob bucket) are deliberately out of this module's scope — callers
// inject one. Every file the engine touches is opaque bytes to the Store;
// all framing lives in ftsearch's own packages.
package blobstore

import "context"

// Store is the blob-storage contract the engine depends on. Every method
// suspends on I/O; implementations are not required to be safe for
// concurrent use by multiple engines against the same namespace (the engine
// itself assumes single-writer access, see the root package's doc comment).
type Store interface {
	// Write replaces the named blob wholesale. From the caller's standpoint
	// this either fully succeeds or fully fails; a partial write must not be
	// observable afterwards.
	Write(ctx context.Context, name string, data []byte) error
	// Append creates the blob if absent and appends data to its end,
	// returning the blob's new total size.
	Append(ctx context.Context, name string, data []byte) (newSize uint64, err error)
	// Read returns the full contents of name, or (nil, false) if absent.
	Read(ctx context.Context, name string) ([]byte, bool, error)
	// ReadRange returns the half-open byte range [start, end) of name, or
	// (nil, false) if name is absent. Reading past the end of the blob
	// returns whatever prefix of the requested range exists.
	ReadRange(ctx context.Context, name string, start, end uint64) ([]byte, bool, error)
	// Size returns the blob's length, or 0 if absent.
	Size(ctx context.Context, name string) (uint64, error)
	// Remove deletes the named blob. Removing an absent blob is a no-op.
	Remove(ctx context.Context, name string) error
	// List returns the names of every blob in the store's namespace.
	List(ctx context.Context) ([]string, error)
	// ClearAll removes every blob in the store's namespace.
	ClearAll(ctx context.Context) error
}

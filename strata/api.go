// Package strata provides snapshot resolution and scan planning for versioned,
// log-structured tables.
//
// Strata focuses on the read path: resolving a consistent snapshot from a
// transaction log, enumerating the data files live at that snapshot, and
// translating deletion vectors into dense row-selection masks. It performs no
// file I/O of its own; storage access, JSON parsing, and Parquet decoding are
// delegated to a pluggable Engine.
package strata

import (
	"context"
)

// -----------------------------------------------------------------------------
// Core types
// -----------------------------------------------------------------------------

// Version is a table log version number.
type Version uint64

// ByteRange selects the half-open byte range [Offset, Offset+Length) of an
// object. A nil *ByteRange in a read request means the whole object.
type ByteRange struct {
	Offset int64
	Length int64
}

// FileMeta describes one object found under a table's log directory.
type FileMeta struct {
	// Path locates the object for later ReadBytes/ReadCheckpoint calls,
	// e.g. "mytable/_delta_log/00000000000000000003.json".
	Path string

	// Size is the object size in bytes.
	Size int64
}

// -----------------------------------------------------------------------------
// Engine boundary
// -----------------------------------------------------------------------------

// Engine is the capability set strata requires from a host engine.
//
// Implementations may target filesystems, S3, or other object stores. All
// methods are read-only and must be safe for concurrent use. Strata never
// retries a failed call; retry policy belongs to the engine or its caller.
type Engine interface {
	// ListLogFiles returns every object under the table's log directory.
	// Ordering is unspecified; strata sorts by parsed version itself.
	// An empty result (or a missing directory) is not an error here;
	// snapshot resolution turns it into ErrTableNotFound.
	ListLogFiles(ctx context.Context, tableRoot string) ([]FileMeta, error)

	// ReadBytes reads an object, or a byte range of it when rng is non-nil.
	// Paths are those produced by ListLogFiles or by deletion-vector path
	// resolution against the table root.
	ReadBytes(ctx context.Context, path string, rng *ByteRange) ([]byte, error)

	// ParseActions decodes a commit file: newline-delimited JSON, one log
	// action per line.
	ParseActions(data []byte) ([]Action, error)

	// ReadCheckpoint decodes a checkpoint file: Parquet, one log action per
	// row.
	ReadCheckpoint(ctx context.Context, path string) ([]Action, error)
}

// RowCounter is an optional Engine capability reporting the physical row count
// of a data file. The default engine implements it by reading the Parquet
// footer. Callers use it to honor the selection-vector length contract without
// guessing.
type RowCounter interface {
	RowCount(ctx context.Context, path string) (int64, error)
}

// -----------------------------------------------------------------------------
// Object storage
// -----------------------------------------------------------------------------

// ObjectStore abstracts the storage backend the default engine reads from.
//
// The interface is read-only and intentionally minimal to avoid
// backend-specific leakage. Range reads must be true range reads (seek+read,
// HTTP Range), not simulated full downloads.
type ObjectStore interface {
	// Get retrieves the entire object at the given path.
	Get(ctx context.Context, path string) ([]byte, error)

	// ReadRange reads the byte range [offset, offset+length) of an object.
	ReadRange(ctx context.Context, path string, offset, length int64) ([]byte, error)

	// Stat returns the size of an object in bytes.
	Stat(ctx context.Context, path string) (int64, error)

	// List returns object paths under the given prefix. Ordering is
	// unspecified.
	List(ctx context.Context, prefix string) ([]string, error)
}

package strata

import "errors"

// Error sentinel values for the scan kernel. Wrapped errors preserve these
// sentinels; test with errors.Is.
var (
	// ErrTableNotFound indicates the table location has no transaction log.
	ErrTableNotFound = errors.New("strata: table not found")

	// ErrVersionNotFound indicates a requested version newer than the latest
	// commit or older than the oldest retained checkpoint.
	ErrVersionNotFound = errors.New("strata: version not found")

	// ErrUnsupportedProtocol indicates the table requires reader features
	// beyond what strata implements.
	ErrUnsupportedProtocol = errors.New("strata: unsupported reader protocol")

	// ErrCorruptLog indicates an action that cannot be parsed or a log that
	// violates ordering invariants (e.g. a gap in a commit version range).
	ErrCorruptLog = errors.New("strata: corrupt table log")

	// ErrInvalidProjection indicates a projected column absent from the
	// snapshot schema.
	ErrInvalidProjection = errors.New("strata: invalid projection")

	// ErrIteratorExhausted indicates Next was called on a scan data iterator
	// that already signaled exhaustion or was closed.
	ErrIteratorExhausted = errors.New("strata: scan data iterator exhausted")

	// ErrDeletionVectorDecode indicates malformed deletion-vector bytes.
	ErrDeletionVectorDecode = errors.New("strata: deletion vector decode failed")

	// ErrDeletionVectorSizeMismatch indicates a deleted row ordinal at or
	// beyond the file's row count. This means the table metadata and the data
	// file disagree and is always fatal for that file, never clamped.
	ErrDeletionVectorSizeMismatch = errors.New("strata: deletion vector size mismatch")

	// ErrNotFound indicates a requested object does not exist in storage.
	ErrNotFound = errors.New("strata: object not found")

	// ErrIoError indicates an engine listing or read failure. The underlying
	// storage error stays in the chain.
	ErrIoError = errors.New("strata: io error")
)

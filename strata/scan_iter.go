package strata

import (
	"context"
	"fmt"
)

// DefaultScanBatchSize bounds how many file entries a single batch carries.
// Batch size affects memory use, never correctness.
const DefaultScanBatchSize = 64

// -----------------------------------------------------------------------------
// Batch types
// -----------------------------------------------------------------------------

// ScanFile is one data file candidate encountered during log replay.
type ScanFile struct {
	// Path is the file path relative to the table root (or absolute).
	Path string

	// Size is the file size in bytes.
	Size int64

	// ModificationTime is the file's modification time in epoch milliseconds.
	ModificationTime int64

	// PartitionValues maps partition column names to string-encoded values.
	PartitionValues map[string]string

	// DeletionVector optionally references the file's deletion vector.
	DeletionVector *DeletionVectorDescriptor

	// Stats optionally carries per-file statistics as a JSON document.
	Stats string
}

// FileBatch is one unit of scan iterator output: file entries plus a validity
// mask. Entries whose mask bit is false were superseded by a newer add or
// retracted by a remove during replay and must be skipped.
//
// A batch is only valid until the next call to the producing iterator.
type FileBatch struct {
	Entries   []ScanFile
	Selection SelectionVector
}

// NumSelected returns the number of valid entries in the batch.
func (b *FileBatch) NumSelected() int {
	return b.Selection.CountSelected()
}

// ScanFileVisitor receives each valid file of a batch.
type ScanFileVisitor func(file ScanFile) error

// VisitScanFiles calls visit once per valid entry of the batch, in batch
// order. It stops at the first visitor error and returns it.
func VisitScanFiles(batch *FileBatch, visit ScanFileVisitor) error {
	for i, entry := range batch.Entries {
		if !batch.Selection[i] {
			continue
		}
		if err := visit(entry); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Scan data iterator
// -----------------------------------------------------------------------------

// ScanDataIterator enumerates batches of scan file metadata lazily, one log
// file at a time, newest-first, so the full file list is never held in memory
// at once.
//
// The iterator is single-consumer: it is not synchronized and concurrent Next
// calls are undefined. Fan out per batch instead; ResolveSelectionVector is
// safe to call from many workers.
type ScanDataIterator struct {
	engine  Engine
	scan    *Scan
	filter  *addFilter
	sources []logSource
	pending []*FileBatch

	batchSize int
	done      bool
}

// logSource is one log file awaiting replay.
type logSource struct {
	meta       FileMeta
	checkpoint bool
}

// ScanDataOption adjusts iterator behavior.
type ScanDataOption func(*ScanDataIterator)

// WithBatchSize caps the number of file entries per batch. Values below one
// fall back to DefaultScanBatchSize.
func WithBatchSize(n int) ScanDataOption {
	return func(it *ScanDataIterator) {
		if n > 0 {
			it.batchSize = n
		}
	}
}

func newScanDataIterator(_ context.Context, engine Engine, scan *Scan, opts ...ScanDataOption) (*ScanDataIterator, error) {
	if engine == nil {
		return nil, fmt.Errorf("strata: scan data iterator requires an engine")
	}

	segment := scan.Snapshot().LogSegment()

	// Replay order: commits newest-first, checkpoint last.
	sources := make([]logSource, 0, len(segment.Commits)+len(segment.Checkpoint))
	for i := len(segment.Commits) - 1; i >= 0; i-- {
		sources = append(sources, logSource{meta: segment.Commits[i]})
	}
	for _, f := range segment.Checkpoint {
		sources = append(sources, logSource{meta: f, checkpoint: true})
	}

	it := &ScanDataIterator{
		engine:    engine,
		scan:      scan,
		filter:    newAddFilter(),
		sources:   sources,
		batchSize: DefaultScanBatchSize,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it, nil
}

// Next returns the next metadata batch. hasMore is false exactly once, at
// exhaustion, with no batch; calls after exhaustion, after Close, or after any
// error fail with ErrIteratorExhausted. I/O and parse failures are terminal
// for the iterator; retry policy belongs to the caller.
func (it *ScanDataIterator) Next(ctx context.Context) (batch *FileBatch, hasMore bool, err error) {
	if it.done {
		return nil, false, ErrIteratorExhausted
	}

	for len(it.pending) == 0 {
		if len(it.sources) == 0 {
			it.done = true
			return nil, false, nil
		}
		src := it.sources[0]
		it.sources = it.sources[1:]

		actions, err := it.load(ctx, src)
		if err != nil {
			it.done = true
			return nil, false, err
		}

		entries, selection := it.filter.filter(actions)
		it.pending = splitBatches(entries, selection, it.batchSize)
	}

	batch = it.pending[0]
	it.pending = it.pending[1:]
	return batch, true, nil
}

// Close releases the iterator. Closing before exhaustion is the normal
// cancellation path; the iterator must not be used afterwards.
func (it *ScanDataIterator) Close() error {
	it.done = true
	it.pending = nil
	it.sources = nil
	return nil
}

func (it *ScanDataIterator) load(ctx context.Context, src logSource) ([]Action, error) {
	if src.checkpoint {
		actions, err := it.engine.ReadCheckpoint(ctx, src.meta.Path)
		if err != nil {
			return nil, fmt.Errorf("strata: read checkpoint %s: %w", src.meta.Path, err)
		}
		return actions, nil
	}

	data, err := it.engine.ReadBytes(ctx, src.meta.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read commit %s: %w", ErrIoError, src.meta.Path, err)
	}
	actions, err := it.engine.ParseActions(data)
	if err != nil {
		return nil, fmt.Errorf("%w: commit %s: %v", ErrCorruptLog, src.meta.Path, err)
	}
	return actions, nil
}

// splitBatches slices the replay output of one log file into bounded batches.
func splitBatches(entries []ScanFile, selection SelectionVector, size int) []*FileBatch {
	var batches []*FileBatch
	for len(entries) > 0 {
		n := min(size, len(entries))
		batches = append(batches, &FileBatch{
			Entries:   entries[:n],
			Selection: selection[:n],
		})
		entries = entries[n:]
		selection = selection[n:]
	}
	return batches
}

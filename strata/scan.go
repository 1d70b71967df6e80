package strata

import (
	"context"
	"fmt"
)

// enableDeletionVectorsKey is the table configuration entry gating
// deletion-vector usage.
const enableDeletionVectorsKey = "delta.enableDeletionVectors"

// -----------------------------------------------------------------------------
// Scan builder
// -----------------------------------------------------------------------------

// Predicate is an opaque scan predicate supplied by the host engine.
//
// Strata records the predicate on the scan and exposes it to the engine; file
// skipping from per-file statistics is an engine-layer concern, so predicates
// are never evaluated here.
type Predicate interface {
	String() string
}

// ScanBuilder assembles a scan over a snapshot.
type ScanBuilder struct {
	snapshot   *Snapshot
	projection []string
	predicate  Predicate
}

// NewScanBuilder creates a builder over the given snapshot.
func NewScanBuilder(snapshot *Snapshot) *ScanBuilder {
	return &ScanBuilder{snapshot: snapshot}
}

// WithProjection restricts the read schema to the named columns, in order.
func (b *ScanBuilder) WithProjection(columns ...string) *ScanBuilder {
	b.projection = columns
	return b
}

// WithPredicate attaches a predicate to the scan.
func (b *ScanBuilder) WithPredicate(p Predicate) *ScanBuilder {
	b.predicate = p
	return b
}

// Build validates the request and derives the scan's global state.
// Returns ErrInvalidProjection if a projected column is not in the snapshot
// schema.
func (b *ScanBuilder) Build() (*Scan, error) {
	if b.snapshot == nil {
		return nil, fmt.Errorf("strata: scan builder requires a snapshot")
	}

	readSchema := b.snapshot.Schema()
	if b.projection != nil {
		projected, err := readSchema.Project(b.projection)
		if err != nil {
			return nil, err
		}
		readSchema = projected
	}

	state := &GlobalScanState{
		TableRoot:              b.snapshot.TableRoot(),
		Version:                b.snapshot.Version(),
		ReadSchema:             readSchema,
		PartitionColumns:       append([]string(nil), b.snapshot.PartitionColumns()...),
		DeletionVectorsEnabled: b.snapshot.Configuration()[enableDeletionVectorsKey] == "true",
	}

	return &Scan{
		snapshot:  b.snapshot,
		state:     state,
		predicate: b.predicate,
	}, nil
}

// -----------------------------------------------------------------------------
// Scan
// -----------------------------------------------------------------------------

// Scan binds a snapshot to a projection and predicate. A scan holds no
// iteration position; call ScanData for a fresh iterator.
type Scan struct {
	snapshot  *Snapshot
	state     *GlobalScanState
	predicate Predicate
}

// Snapshot returns the snapshot the scan reads from.
func (s *Scan) Snapshot() *Snapshot { return s.snapshot }

// GlobalState returns the state shared by all files in the scan.
func (s *Scan) GlobalState() *GlobalScanState { return s.state }

// Predicate returns the predicate attached to the scan, or nil.
func (s *Scan) Predicate() Predicate { return s.predicate }

// ScanData returns an iterator over batches of scan file metadata.
// Each iterator is single-consumer and independent of any other iterator
// created from the same scan.
func (s *Scan) ScanData(ctx context.Context, engine Engine, opts ...ScanDataOption) (*ScanDataIterator, error) {
	return newScanDataIterator(ctx, engine, s, opts...)
}

// -----------------------------------------------------------------------------
// Global scan state
// -----------------------------------------------------------------------------

// GlobalScanState holds everything constant across all files in a scan.
// It is immutable and safe to share across concurrent workers; later stages
// consult it instead of the snapshot.
type GlobalScanState struct {
	// TableRoot is the table's root location. Relative deletion-vector paths
	// resolve against it.
	TableRoot string

	// Version is the snapshot version the scan reads.
	Version Version

	// ReadSchema is the effective schema after projection.
	ReadSchema *StructType

	// PartitionColumns lists the table's partition columns.
	PartitionColumns []string

	// DeletionVectorsEnabled reports whether the table configuration enables
	// deletion vectors.
	DeletionVectorsEnabled bool
}

package strata

import (
	"context"
	"fmt"
	"sort"

	"github.com/justapithecus/strata/internal/logpath"
)

// -----------------------------------------------------------------------------
// Log segment
// -----------------------------------------------------------------------------

// LogSegment is the ordered set of log files replayed to build a snapshot: the
// newest usable checkpoint at or below the snapshot version, plus every commit
// above it.
type LogSegment struct {
	// Version is the snapshot version this segment resolves to.
	Version Version

	// Commits holds the commit files with versions in
	// (CheckpointVersion, Version], in ascending version order.
	Commits []FileMeta

	// Checkpoint holds the checkpoint file, or all parts of a multi-part
	// checkpoint. Empty when the segment starts at version 0.
	Checkpoint []FileMeta

	// CheckpointVersion is the version of the checkpoint, nil when none.
	CheckpointVersion *Version
}

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

// Snapshot is an immutable view of a table at a specific log version.
//
// A snapshot is safe to share read-only across any number of concurrent scans.
type Snapshot struct {
	tableRoot string
	version   Version
	schema    *StructType
	metadata  *Metadata
	protocol  *Protocol
	segment   LogSegment
}

// TableRoot returns the table's root location.
func (s *Snapshot) TableRoot() string { return s.tableRoot }

// Version returns the resolved log version.
func (s *Snapshot) Version() Version { return s.version }

// Schema returns the table schema at this version.
func (s *Snapshot) Schema() *StructType { return s.schema }

// PartitionColumns returns the partition column names at this version.
func (s *Snapshot) PartitionColumns() []string { return s.metadata.PartitionColumns }

// Configuration returns the table configuration at this version.
func (s *Snapshot) Configuration() map[string]string { return s.metadata.Configuration }

// Protocol returns the protocol action governing this version.
func (s *Snapshot) Protocol() *Protocol { return s.protocol }

// LogSegment returns the log files this snapshot was derived from.
func (s *Snapshot) LogSegment() LogSegment { return s.segment }

// -----------------------------------------------------------------------------
// Resolution
// -----------------------------------------------------------------------------

// readerFeatures strata understands. Tables whose protocol demands anything
// else fail with ErrUnsupportedProtocol.
var supportedReaderFeatures = map[string]bool{
	"deletionVectors": true,
}

// maxReaderVersion is the highest table reader protocol version strata reads.
const maxReaderVersion = 3

// ResolveSnapshot opens the table at tableRoot and resolves a snapshot at the
// requested version, or at the latest commit when version is nil.
//
// Resolution is read-only: it lists the log directory, selects a log segment,
// and replays it newest-first until the table's metadata and protocol are
// known. The returned snapshot never changes.
func ResolveSnapshot(ctx context.Context, engine Engine, tableRoot string, version *Version) (*Snapshot, error) {
	files, err := engine.ListLogFiles(ctx, tableRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: list log files: %w", ErrIoError, err)
	}

	hint := readCheckpointHint(ctx, engine, tableRoot)

	segment, err := selectLogSegment(files, version, hint)
	if err != nil {
		return nil, err
	}

	meta, proto, err := loadTableState(ctx, engine, tableRoot, segment)
	if err != nil {
		return nil, err
	}

	if err := checkProtocol(proto); err != nil {
		return nil, err
	}

	schema, err := ParseSchema(meta.SchemaString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}

	return &Snapshot{
		tableRoot: tableRoot,
		version:   segment.Version,
		schema:    schema,
		metadata:  meta,
		protocol:  proto,
		segment:   segment,
	}, nil
}

// checkpointHint mirrors the _last_checkpoint document inside the log
// directory.
type checkpointHint struct {
	Version uint64  `json:"version"`
	Size    int64   `json:"size"`
	Parts   *uint32 `json:"parts,omitempty"`
}

// readCheckpointHint loads the _last_checkpoint file if present. The hint is
// advisory only: a missing or unparseable hint yields nil and never fails
// resolution.
func readCheckpointHint(ctx context.Context, engine Engine, tableRoot string) *checkpointHint {
	p := joinTablePath(tableRoot, logpath.LastCheckpointPath())
	data, err := engine.ReadBytes(ctx, p, nil)
	if err != nil {
		return nil
	}
	var hint checkpointHint
	if err := jsonCodec.Unmarshal(data, &hint); err != nil {
		return nil
	}
	return &hint
}

// selectLogSegment picks the log files needed to materialize the requested
// version: a complete checkpoint at or below it, then a contiguous run of
// commits up to it. A valid hint names the checkpoint directly; otherwise the
// newest complete checkpoint in the listing is used.
func selectLogSegment(files []FileMeta, requested *Version, hint *checkpointHint) (LogSegment, error) {
	commits := make(map[uint64]FileMeta)
	checkpointParts := make(map[uint64][]FileMeta)
	checkpointWant := make(map[uint64]uint32)

	for _, f := range files {
		info, ok := logpath.Parse(f.Path)
		if !ok {
			continue
		}
		switch info.Kind {
		case logpath.Commit:
			commits[info.Version] = f
		case logpath.Checkpoint:
			checkpointParts[info.Version] = []FileMeta{f}
			checkpointWant[info.Version] = 1
		case logpath.MultiPartCheckpoint:
			checkpointParts[info.Version] = append(checkpointParts[info.Version], f)
			checkpointWant[info.Version] = info.NumParts
		}
	}

	if len(commits) == 0 && len(checkpointParts) == 0 {
		return LogSegment{}, ErrTableNotFound
	}

	// Complete checkpoints only: a multi-part checkpoint missing parts is
	// unusable and ignored.
	var checkpointVersions []uint64
	for v, parts := range checkpointParts {
		if uint32(len(parts)) == checkpointWant[v] {
			checkpointVersions = append(checkpointVersions, v)
		}
	}
	sort.Slice(checkpointVersions, func(i, j int) bool { return checkpointVersions[i] < checkpointVersions[j] })

	latest := uint64(0)
	for v := range commits {
		if v > latest {
			latest = v
		}
	}
	for _, v := range checkpointVersions {
		if v > latest {
			latest = v
		}
	}

	target := latest
	if requested != nil {
		target = uint64(*requested)
		if target > latest {
			return LogSegment{}, fmt.Errorf("%w: requested version %d, latest is %d",
				ErrVersionNotFound, target, latest)
		}
	}

	segment := LogSegment{Version: Version(target)}

	// The hint short-circuits checkpoint selection when it names a complete
	// checkpoint at or below the target. A stale hint (checkpoint cleaned up
	// or incomplete) falls back to the listing.
	if hint != nil && hint.Version <= target {
		if parts, ok := checkpointParts[hint.Version]; ok &&
			uint32(len(parts)) == checkpointWant[hint.Version] &&
			(hint.Parts == nil || *hint.Parts == checkpointWant[hint.Version]) {
			cv := Version(hint.Version)
			segment.CheckpointVersion = &cv
			segment.Checkpoint = parts
		}
	}

	// Newest complete checkpoint at or below the target.
	if segment.CheckpointVersion == nil {
		for i := len(checkpointVersions) - 1; i >= 0; i-- {
			if v := checkpointVersions[i]; v <= target {
				cv := Version(v)
				segment.CheckpointVersion = &cv
				segment.Checkpoint = checkpointParts[v]
				break
			}
		}
	}

	// Multi-part checkpoints replay in part order. Listing order is
	// unspecified, so sort here.
	if len(segment.Checkpoint) > 1 {
		sort.Slice(segment.Checkpoint, func(i, j int) bool {
			a, _ := logpath.Parse(segment.Checkpoint[i].Path)
			b, _ := logpath.Parse(segment.Checkpoint[j].Path)
			return a.Part < b.Part
		})
	}

	lo := uint64(0)
	if segment.CheckpointVersion != nil {
		lo = uint64(*segment.CheckpointVersion) + 1
	}
	for v := lo; v <= target; v++ {
		f, ok := commits[v]
		if !ok {
			if v == lo && segment.CheckpointVersion == nil {
				// The head of the log has been cleaned up and no checkpoint
				// covers the requested version.
				return LogSegment{}, fmt.Errorf("%w: version %d predates the oldest retained log entry",
					ErrVersionNotFound, target)
			}
			return LogSegment{}, fmt.Errorf("%w: commit %d missing from range [%d, %d]",
				ErrCorruptLog, v, lo, target)
		}
		segment.Commits = append(segment.Commits, f)
	}

	return segment, nil
}

// loadTableState replays the segment newest-first until both the metadata and
// protocol actions have been seen. Later actions win, so the first of each
// encountered in replay order is the effective one.
func loadTableState(ctx context.Context, engine Engine, tableRoot string, segment LogSegment) (*Metadata, *Protocol, error) {
	var meta *Metadata
	var proto *Protocol

	scan := func(actions []Action) {
		for _, a := range actions {
			if meta == nil && a.MetaData != nil {
				meta = a.MetaData
			}
			if proto == nil && a.Protocol != nil {
				proto = a.Protocol
			}
		}
	}

	for i := len(segment.Commits) - 1; i >= 0 && (meta == nil || proto == nil); i-- {
		f := segment.Commits[i]
		data, err := engine.ReadBytes(ctx, f.Path, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read commit %s: %w", ErrIoError, f.Path, err)
		}
		actions, err := engine.ParseActions(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: commit %s: %v", ErrCorruptLog, f.Path, err)
		}
		scan(actions)
	}

	for _, f := range segment.Checkpoint {
		if meta != nil && proto != nil {
			break
		}
		actions, err := engine.ReadCheckpoint(ctx, f.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("strata: checkpoint %s: %w", f.Path, err)
		}
		scan(actions)
	}

	if meta == nil {
		return nil, nil, fmt.Errorf("%w: no metaData action in log segment", ErrCorruptLog)
	}
	if proto == nil {
		return nil, nil, fmt.Errorf("%w: no protocol action in log segment", ErrCorruptLog)
	}
	return meta, proto, nil
}

// checkProtocol rejects tables requiring reader capabilities strata does not
// implement.
func checkProtocol(p *Protocol) error {
	if p.MinReaderVersion > maxReaderVersion {
		return fmt.Errorf("%w: minReaderVersion %d exceeds supported %d",
			ErrUnsupportedProtocol, p.MinReaderVersion, maxReaderVersion)
	}
	if p.MinReaderVersion == 3 {
		for _, f := range p.ReaderFeatures {
			if !supportedReaderFeatures[f] {
				return fmt.Errorf("%w: reader feature %q", ErrUnsupportedProtocol, f)
			}
		}
	}
	return nil
}

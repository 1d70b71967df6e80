package strata_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/parquet-go/parquet-go"

	"github.com/justapithecus/strata/internal/logpath"
	"github.com/justapithecus/strata/internal/storage"
	"github.com/justapithecus/strata/internal/z85"
	"github.com/justapithecus/strata/strata"
)

// Shared fixtures: tables are assembled in a Memory store with an empty table
// root, so log paths are store paths directly.

const testSchemaString = `{"type":"struct","fields":[` +
	`{"name":"id","type":"long","nullable":false,"metadata":{}},` +
	`{"name":"val","type":"string","nullable":true,"metadata":{}}]}`

func newTestEngine() (*strata.DefaultEngine, *storage.Memory) {
	store := storage.NewMemory()
	return strata.NewDefaultEngine(store), store
}

// failingEngine fails every listing and read with a fixed error. The embedded
// engine still serves the methods that never touch storage.
type failingEngine struct {
	strata.Engine
	err error
}

func (e *failingEngine) ListLogFiles(ctx context.Context, tableRoot string) ([]strata.FileMeta, error) {
	return nil, e.err
}

func (e *failingEngine) ReadBytes(ctx context.Context, path string, rng *strata.ByteRange) ([]byte, error) {
	return nil, e.err
}

// writeCommit serializes actions as newline-delimited JSON at the commit path
// for the given version.
func writeCommit(t *testing.T, store *storage.Memory, version uint64, actions ...strata.Action) {
	t.Helper()
	var buf bytes.Buffer
	for _, a := range actions {
		line, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal action: %v", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	store.Put(logpath.CommitPath(version), buf.Bytes())
}

// checkpointRow mirrors the Parquet row shape of a checkpoint file.
type checkpointRow struct {
	Txn      *strata.Txn      `parquet:"txn,optional"`
	Add      *strata.Add      `parquet:"add,optional"`
	Remove   *strata.Remove   `parquet:"remove,optional"`
	MetaData *strata.Metadata `parquet:"metaData,optional"`
	Protocol *strata.Protocol `parquet:"protocol,optional"`
}

func encodeCheckpointRows(t *testing.T, actions []strata.Action) []byte {
	t.Helper()
	rows := make([]checkpointRow, len(actions))
	for i, a := range actions {
		rows[i] = checkpointRow{
			Txn:      a.Txn,
			Add:      a.Add,
			Remove:   a.Remove,
			MetaData: a.MetaData,
			Protocol: a.Protocol,
		}
	}
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		t.Fatalf("write checkpoint parquet: %v", err)
	}
	return buf.Bytes()
}

// writeCheckpoint serializes actions as a single-part Parquet checkpoint at
// the given version.
func writeCheckpoint(t *testing.T, store *storage.Memory, version uint64, actions ...strata.Action) {
	t.Helper()
	store.Put(logpath.CheckpointPath(version), encodeCheckpointRows(t, actions))
}

// writeCheckpointPart serializes actions as one part of a multi-part Parquet
// checkpoint.
func writeCheckpointPart(t *testing.T, store *storage.Memory, version uint64, part, numParts uint32, actions ...strata.Action) {
	t.Helper()
	store.Put(logpath.MultiPartCheckpointPath(version, part, numParts), encodeCheckpointRows(t, actions))
}

func metadataAction(configuration map[string]string, partitionColumns ...string) strata.Action {
	if partitionColumns == nil {
		partitionColumns = []string{}
	}
	if configuration == nil {
		configuration = map[string]string{}
	}
	return strata.Action{MetaData: &strata.Metadata{
		ID:               "11111111-2222-3333-4444-555555555555",
		Format:           strata.Format{Provider: "parquet"},
		SchemaString:     testSchemaString,
		PartitionColumns: partitionColumns,
		Configuration:    configuration,
	}}
}

func protocolAction() strata.Action {
	return strata.Action{Protocol: &strata.Protocol{
		MinReaderVersion: 1,
		MinWriterVersion: 2,
	}}
}

func addAction(path string) strata.Action {
	return strata.Action{Add: &strata.Add{
		Path:             path,
		PartitionValues:  map[string]string{},
		Size:             1024,
		ModificationTime: 1700000000000,
		DataChange:       true,
	}}
}

func addActionDV(path string, dv *strata.DeletionVectorDescriptor) strata.Action {
	a := addAction(path)
	a.Add.DeletionVector = dv
	return a
}

func removeAction(path string) strata.Action {
	ts := int64(1700000001000)
	return strata.Action{Remove: &strata.Remove{
		Path:              path,
		DeletionTimestamp: &ts,
		DataChange:        true,
	}}
}

// dvPayload serializes deleted ordinals as a 64-bit roaring bitmap array:
// little-endian magic, little-endian bitmap count, then one 32-bit bitmap per
// high word from zero through the highest present.
func dvPayload(t *testing.T, ordinals []uint64) []byte {
	t.Helper()

	count := uint64(0)
	if len(ordinals) > 0 {
		maxKey := uint64(0)
		for _, ord := range ordinals {
			if key := ord >> 32; key > maxKey {
				maxKey = key
			}
		}
		count = maxKey + 1
	}

	var buf bytes.Buffer
	var header [12]byte
	binary.LittleEndian.PutUint32(header[:4], 1681511377)
	binary.LittleEndian.PutUint64(header[4:], count)
	buf.Write(header[:])

	for key := uint64(0); key < count; key++ {
		bm := roaring.New()
		for _, ord := range ordinals {
			if ord>>32 == key {
				bm.Add(uint32(ord))
			}
		}
		if _, err := bm.WriteTo(&buf); err != nil {
			t.Fatalf("serialize bitmap: %v", err)
		}
	}
	return buf.Bytes()
}

// inlineDV builds an inline deletion vector descriptor for the given deleted
// ordinals, Z85-encoded with zero padding to a 4-byte multiple.
func inlineDV(t *testing.T, ordinals []uint64) *strata.DeletionVectorDescriptor {
	t.Helper()
	payload := dvPayload(t, ordinals)

	padded := payload
	if rem := len(padded) % 4; rem != 0 {
		padded = append(append([]byte(nil), padded...), make([]byte, 4-rem)...)
	}
	encoded, err := z85.Encode(padded)
	if err != nil {
		t.Fatalf("encode inline vector: %v", err)
	}

	return &strata.DeletionVectorDescriptor{
		StorageType:    strata.DVStorageInline,
		PathOrInlineDV: encoded,
		SizeInBytes:    int32(len(payload)),
		Cardinality:    int64(len(ordinals)),
	}
}

// resolveLatest is shorthand for resolving the latest snapshot at an empty
// table root.
func resolveLatest(t *testing.T, engine strata.Engine) *strata.Snapshot {
	t.Helper()
	snapshot, err := strata.ResolveSnapshot(t.Context(), engine, "", nil)
	if err != nil {
		t.Fatalf("ResolveSnapshot failed: %v", err)
	}
	return snapshot
}

// collectScanFiles drains a fresh iterator over the scan and returns every
// valid file entry.
func collectScanFiles(t *testing.T, engine strata.Engine, scan *strata.Scan, opts ...strata.ScanDataOption) []strata.ScanFile {
	t.Helper()
	ctx := t.Context()

	it, err := scan.ScanData(ctx, engine, opts...)
	if err != nil {
		t.Fatalf("ScanData failed: %v", err)
	}
	defer func() { _ = it.Close() }()

	var files []strata.ScanFile
	for {
		batch, hasMore, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !hasMore {
			return files
		}
		err = strata.VisitScanFiles(batch, func(file strata.ScanFile) error {
			files = append(files, file)
			return nil
		})
		if err != nil {
			t.Fatalf("VisitScanFiles failed: %v", err)
		}
	}
}

// scanFilePaths returns the paths of the given entries in encounter order.
func scanFilePaths(files []strata.ScanFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

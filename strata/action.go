package strata

// Log action shapes, as serialized in commit files (one JSON object per line)
// and checkpoint files (one row per action, at most one non-nil field).

// Action is a single transaction log record. Exactly one field is non-nil in a
// well-formed record; records carrying none of the fields strata folds
// (commitInfo, txn, domainMetadata, cdc) are retained but ignored by replay.
type Action struct {
	Add            *Add            `json:"add,omitempty"`
	Remove         *Remove         `json:"remove,omitempty"`
	MetaData       *Metadata       `json:"metaData,omitempty"`
	Protocol       *Protocol       `json:"protocol,omitempty"`
	Txn            *Txn            `json:"txn,omitempty"`
	CommitInfo     map[string]any  `json:"commitInfo,omitempty"`
	DomainMetadata *DomainMetadata `json:"domainMetadata,omitempty"`
}

// Add records a data file joining the table.
type Add struct {
	// Path is the file path relative to the table root (or absolute).
	Path string `json:"path" parquet:"path"`

	// PartitionValues maps partition column names to their string-encoded
	// values for this file.
	PartitionValues map[string]string `json:"partitionValues" parquet:"partitionValues"`

	// Size is the file size in bytes.
	Size int64 `json:"size" parquet:"size"`

	// ModificationTime is the file's modification time in epoch milliseconds.
	ModificationTime int64 `json:"modificationTime" parquet:"modificationTime"`

	// DataChange is false when the file was rewritten without logical change
	// (e.g. compaction).
	DataChange bool `json:"dataChange" parquet:"dataChange"`

	// Stats optionally carries per-file statistics as a JSON document.
	Stats string `json:"stats,omitempty" parquet:"stats,optional"`

	// Tags optionally carries writer-defined metadata.
	Tags map[string]string `json:"tags,omitempty" parquet:"tags,optional"`

	// DeletionVector optionally references the file's deletion vector.
	DeletionVector *DeletionVectorDescriptor `json:"deletionVector,omitempty" parquet:"deletionVector,optional"`

	BaseRowID               *int64  `json:"baseRowId,omitempty" parquet:"baseRowId,optional"`
	DefaultRowCommitVersion *int64  `json:"defaultRowCommitVersion,omitempty" parquet:"defaultRowCommitVersion,optional"`
	ClusteringProvider      *string `json:"clusteringProvider,omitempty" parquet:"clusteringProvider,optional"`
}

// Remove records a data file leaving the table. A remove retracts any add for
// the same path at or before the remove's version.
type Remove struct {
	Path                 string                    `json:"path" parquet:"path"`
	DeletionTimestamp    *int64                    `json:"deletionTimestamp,omitempty" parquet:"deletionTimestamp,optional"`
	DataChange           bool                      `json:"dataChange" parquet:"dataChange"`
	ExtendedFileMetadata *bool                     `json:"extendedFileMetadata,omitempty" parquet:"extendedFileMetadata,optional"`
	PartitionValues      map[string]string         `json:"partitionValues,omitempty" parquet:"partitionValues,optional"`
	Size                 *int64                    `json:"size,omitempty" parquet:"size,optional"`
	Stats                string                    `json:"stats,omitempty" parquet:"stats,optional"`
	Tags                 map[string]string         `json:"tags,omitempty" parquet:"tags,optional"`
	DeletionVector       *DeletionVectorDescriptor `json:"deletionVector,omitempty" parquet:"deletionVector,optional"`
}

// Metadata records the table's schema, partitioning, and configuration.
type Metadata struct {
	ID               string            `json:"id" parquet:"id"`
	Name             string            `json:"name,omitempty" parquet:"name,optional"`
	Description      string            `json:"description,omitempty" parquet:"description,optional"`
	Format           Format            `json:"format" parquet:"format"`
	SchemaString     string            `json:"schemaString" parquet:"schemaString"`
	PartitionColumns []string          `json:"partitionColumns" parquet:"partitionColumns"`
	CreatedTime      *int64            `json:"createdTime,omitempty" parquet:"createdTime,optional"`
	Configuration    map[string]string `json:"configuration" parquet:"configuration"`
}

// Format describes the encoding of the table's data files.
type Format struct {
	Provider string            `json:"provider" parquet:"provider"`
	Options  map[string]string `json:"options,omitempty" parquet:"options,optional"`
}

// Protocol records the reader and writer versions (and, from reader version 3
// on, the feature lists) required to use the table correctly.
type Protocol struct {
	MinReaderVersion int32    `json:"minReaderVersion" parquet:"minReaderVersion"`
	MinWriterVersion int32    `json:"minWriterVersion" parquet:"minWriterVersion"`
	ReaderFeatures   []string `json:"readerFeatures,omitempty" parquet:"readerFeatures,optional"`
	WriterFeatures   []string `json:"writerFeatures,omitempty" parquet:"writerFeatures,optional"`
}

// Txn records an application-specific transaction watermark.
type Txn struct {
	AppID       string `json:"appId" parquet:"appId"`
	Version     int64  `json:"version" parquet:"version"`
	LastUpdated *int64 `json:"lastUpdated,omitempty" parquet:"lastUpdated,optional"`
}

// DomainMetadata records configuration owned by a named metadata domain.
type DomainMetadata struct {
	Domain        string            `json:"domain" parquet:"domain"`
	Configuration map[string]string `json:"configuration" parquet:"configuration"`
	Removed       bool              `json:"removed" parquet:"removed"`
}

// DeletionVectorDescriptor locates a file's deletion vector: a compressed
// bitmap of row ordinals logically deleted without rewriting the file.
type DeletionVectorDescriptor struct {
	// StorageType is one of:
	//   "u": relative path derived from a Z85-encoded UUID
	//   "p": absolute path
	//   "i": inline, PathOrInlineDV holds the Z85-encoded bitmap data
	StorageType string `json:"storageType" parquet:"storageType"`

	// PathOrInlineDV is interpreted according to StorageType.
	PathOrInlineDV string `json:"pathOrInlineDv" parquet:"pathOrInlineDv"`

	// Offset is the byte position of the vector's data-size field within the
	// referenced file. Nil for inline vectors, and for files holding a single
	// vector directly after the format version byte.
	Offset *int32 `json:"offset,omitempty" parquet:"offset,optional"`

	// SizeInBytes is the size of the serialized bitmap, magic included.
	SizeInBytes int32 `json:"sizeInBytes" parquet:"sizeInBytes"`

	// Cardinality is the expected number of deleted rows.
	Cardinality int64 `json:"cardinality" parquet:"cardinality"`
}

// Package logpath parses and formats transaction log file names.
package logpath

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// LogDir is the directory under the table root holding the transaction log.
const LogDir = "_delta_log"

// LastCheckpointFile is the checkpoint hint object inside the log directory.
const LastCheckpointFile = "_last_checkpoint"

// Kind classifies a log file by its name.
type Kind int

// Log file kinds.
const (
	// Commit is a newline-delimited JSON commit file,
	// e.g. 00000000000000000003.json.
	Commit Kind = iota

	// Checkpoint is a single-part Parquet checkpoint,
	// e.g. 00000000000000000010.checkpoint.parquet.
	Checkpoint

	// MultiPartCheckpoint is one part of a multi-part Parquet checkpoint,
	// e.g. 00000000000000000010.checkpoint.0000000001.0000000002.parquet.
	MultiPartCheckpoint
)

// Info is a parsed log file name.
type Info struct {
	Kind    Kind
	Version uint64

	// Part and NumParts are set for MultiPartCheckpoint (1-based part index).
	Part     uint32
	NumParts uint32
}

// Parse interprets a path as a log file name. The path may be relative to the
// table root or just the base name. ok is false for names that are not commit
// or checkpoint files (CRC files, the checkpoint hint, temp files, ...).
func Parse(p string) (Info, bool) {
	name := path.Base(p)
	parts := strings.Split(name, ".")

	version, err := parseVersion(parts[0])
	if err != nil {
		return Info{}, false
	}

	switch {
	case len(parts) == 2 && parts[1] == "json":
		return Info{Kind: Commit, Version: version}, true
	case len(parts) == 3 && parts[1] == "checkpoint" && parts[2] == "parquet":
		return Info{Kind: Checkpoint, Version: version}, true
	case len(parts) == 5 && parts[1] == "checkpoint" && parts[4] == "parquet":
		part, err1 := strconv.ParseUint(parts[2], 10, 32)
		num, err2 := strconv.ParseUint(parts[3], 10, 32)
		if err1 != nil || err2 != nil || part == 0 || num == 0 || part > num {
			return Info{}, false
		}
		return Info{
			Kind:     MultiPartCheckpoint,
			Version:  version,
			Part:     uint32(part),
			NumParts: uint32(num),
		}, true
	}
	return Info{}, false
}

// parseVersion requires the zero-padded 20-digit form used by log file names.
func parseVersion(s string) (uint64, error) {
	if len(s) != 20 {
		return 0, fmt.Errorf("logpath: version field %q is not 20 digits", s)
	}
	return strconv.ParseUint(s, 10, 64)
}

// CommitPath returns the table-relative path of the commit file for a version.
func CommitPath(version uint64) string {
	return fmt.Sprintf("%s/%020d.json", LogDir, version)
}

// CheckpointPath returns the table-relative path of a single-part checkpoint.
func CheckpointPath(version uint64) string {
	return fmt.Sprintf("%s/%020d.checkpoint.parquet", LogDir, version)
}

// MultiPartCheckpointPath returns the table-relative path of one part of a
// multi-part checkpoint. part is 1-based.
func MultiPartCheckpointPath(version uint64, part, numParts uint32) string {
	return fmt.Sprintf("%s/%020d.checkpoint.%010d.%010d.parquet", LogDir, version, part, numParts)
}

// LastCheckpointPath returns the table-relative path of the checkpoint hint.
func LastCheckpointPath() string {
	return path.Join(LogDir, LastCheckpointFile)
}

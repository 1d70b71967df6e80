package strata

// Log replay. The log is folded newest-first: the first action seen for a
// (path, deletion vector) pairing wins, and a remove tombstone suppresses any
// older add for that pairing. Only files live at the snapshot version survive.

// fileKey identifies a data file together with its deletion vector. Keying on
// the pair lets a rewrite that only swaps a file's deletion vector supersede
// the old add while keeping the new one.
type fileKey struct {
	path string
	dvID string
}

// addFilter carries the seen-set across log files of one replay.
type addFilter struct {
	seen map[fileKey]struct{}
}

func newAddFilter() *addFilter {
	return &addFilter{seen: make(map[fileKey]struct{})}
}

// filter processes the actions of one log file (replay runs newest file
// first). It returns every add entry encountered, with a validity mask:
// entries already superseded or tombstoned are kept in place but masked
// false. Remove actions update the seen-set and produce no entry.
func (f *addFilter) filter(actions []Action) ([]ScanFile, SelectionVector) {
	var entries []ScanFile
	var selection SelectionVector

	for _, a := range actions {
		switch {
		case a.Add != nil:
			add := a.Add
			key := fileKey{path: add.Path, dvID: add.DeletionVector.UniqueID()}
			_, dup := f.seen[key]
			if !dup {
				f.seen[key] = struct{}{}
			}
			entries = append(entries, ScanFile{
				Path:             add.Path,
				Size:             add.Size,
				ModificationTime: add.ModificationTime,
				PartitionValues:  add.PartitionValues,
				DeletionVector:   add.DeletionVector,
				Stats:            add.Stats,
			})
			selection = append(selection, !dup)

		case a.Remove != nil:
			key := fileKey{path: a.Remove.Path, dvID: a.Remove.DeletionVector.UniqueID()}
			f.seen[key] = struct{}{}
		}
	}

	return entries, selection
}

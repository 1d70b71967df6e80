package strata

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// checkpointEntry is the Parquet row shape of a checkpoint file. At most one
// field is non-nil per row. commitInfo never appears in checkpoints, so the
// row type omits it.
type checkpointEntry struct {
	Txn      *Txn      `parquet:"txn,optional"`
	Add      *Add      `parquet:"add,optional"`
	Remove   *Remove   `parquet:"remove,optional"`
	MetaData *Metadata `parquet:"metaData,optional"`
	Protocol *Protocol `parquet:"protocol,optional"`
}

func (e checkpointEntry) action() Action {
	return Action{
		Txn:      e.Txn,
		Add:      e.Add,
		Remove:   e.Remove,
		MetaData: e.MetaData,
		Protocol: e.Protocol,
	}
}

// decodeCheckpoint parses a checkpoint file's bytes into log actions.
func decodeCheckpoint(data []byte) ([]Action, error) {
	rows, err := parquet.Read[checkpointEntry](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("decode checkpoint parquet: %w", err)
	}

	actions := make([]Action, len(rows))
	for i, row := range rows {
		actions[i] = row.action()
	}
	return actions, nil
}

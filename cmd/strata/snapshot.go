package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justapithecus/strata/strata"
)

var snapshotAt int64

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <table>",
	Short: "Resolve and describe a table snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, tableRoot, err := openTable(cmd, args[0])
		if err != nil {
			return err
		}

		snapshot, err := strata.ResolveSnapshot(cmd.Context(), engine, tableRoot, parseVersionFlag(snapshotAt))
		if err != nil {
			return err
		}

		fmt.Printf("version: %d\n", snapshot.Version())
		fmt.Printf("protocol: reader=%d writer=%d\n",
			snapshot.Protocol().MinReaderVersion, snapshot.Protocol().MinWriterVersion)
		if cols := snapshot.PartitionColumns(); len(cols) > 0 {
			fmt.Printf("partitioned by: %s\n", strings.Join(cols, ", "))
		}
		fmt.Println("schema:")
		for _, f := range snapshot.Schema().Fields {
			typeName := f.Type.Name
			if typeName == "" {
				typeName = "(nested)"
			}
			nullable := ""
			if f.Nullable {
				nullable = " nullable"
			}
			fmt.Printf("  %s: %s%s\n", f.Name, typeName, nullable)
		}
		return nil
	},
}

func init() {
	snapshotCmd.Flags().Int64Var(&snapshotAt, "at", -1, "snapshot version (default: latest)")
}

package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justapithecus/strata/strata"
)

var (
	scanAt        int64
	scanColumns   []string
	scanSelection bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <table>",
	Short: "Enumerate the data files of a snapshot",
	Long: `scan lists every data file live at a snapshot, with its partition values
and deletion vector summary. With --selection, each file's deletion vector is
resolved into a row selection vector (requires Parquet data files).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, tableRoot, err := openTable(cmd, args[0])
		if err != nil {
			return err
		}

		snapshot, err := strata.ResolveSnapshot(ctx, engine, tableRoot, parseVersionFlag(scanAt))
		if err != nil {
			return err
		}

		builder := strata.NewScanBuilder(snapshot)
		if len(scanColumns) > 0 {
			builder = builder.WithProjection(scanColumns...)
		}
		scan, err := builder.Build()
		if err != nil {
			return err
		}
		state := scan.GlobalState()

		iter, err := scan.ScanData(ctx, engine)
		if err != nil {
			return err
		}
		defer func() { _ = iter.Close() }()

		files, rows, selected := 0, int64(0), int64(0)
		for {
			batch, hasMore, err := iter.Next(ctx)
			if err != nil {
				return err
			}
			if !hasMore {
				break
			}
			slog.Debug("scan batch", "entries", len(batch.Entries), "selected", batch.NumSelected())

			err = strata.VisitScanFiles(batch, func(file strata.ScanFile) error {
				files++
				fmt.Printf("%s\t%d bytes", file.Path, file.Size)
				if len(file.PartitionValues) > 0 {
					fmt.Printf("\t[%s]", formatPartitionValues(file.PartitionValues))
				}
				if dv := file.DeletionVector; dv != nil {
					fmt.Printf("\tdeleted=%d", dv.Cardinality)
				}
				fmt.Println()

				if scanSelection {
					n, err := engine.RowCount(ctx, joinTable(tableRoot, file.Path))
					if err != nil {
						return err
					}
					sel, err := strata.ResolveSelectionVector(ctx, engine, state, file.DeletionVector, n)
					if err != nil {
						return err
					}
					rows += n
					selected += int64(sel.CountSelected())
					fmt.Printf("  rows=%d selected=%d\n", n, sel.CountSelected())
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		fmt.Printf("%d file(s) at version %d\n", files, snapshot.Version())
		if scanSelection {
			fmt.Printf("%d of %d row(s) selected\n", selected, rows)
		}
		return nil
	},
}

func formatPartitionValues(values map[string]string) string {
	parts := make([]string, 0, len(values))
	for k, v := range values {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func joinTable(tableRoot, path string) string {
	if tableRoot == "" || strings.HasPrefix(path, tableRoot+"/") {
		return path
	}
	return tableRoot + "/" + path
}

func init() {
	scanCmd.Flags().Int64Var(&scanAt, "at", -1, "snapshot version (default: latest)")
	scanCmd.Flags().StringSliceVar(&scanColumns, "columns", nil, "projected columns")
	scanCmd.Flags().BoolVar(&scanSelection, "selection", false, "resolve deletion vectors into row selection vectors")
}

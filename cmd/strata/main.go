// Command strata inspects versioned, log-structured tables: it resolves
// snapshots and plans scans without reading the data files themselves.
package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/justapithecus/strata/internal/storage"
	"github.com/justapithecus/strata/strata"
	s3store "github.com/justapithecus/strata/strata/s3"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Inspect versioned, log-structured tables",
	Long: `strata resolves table snapshots and plans scans over log-structured tables.

Table locations may be local directories or s3://bucket/prefix URLs.

Examples:
  strata snapshot /data/events
  strata snapshot s3://lake/warehouse/events --at 12
  strata scan /data/events --columns id,ts`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(scanCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openTable builds an engine and table root for a location: a local directory
// or an s3://bucket/prefix URL.
func openTable(cmd *cobra.Command, location string) (*strata.DefaultEngine, string, error) {
	if strings.HasPrefix(location, "s3://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, "", fmt.Errorf("parse table location: %w", err)
		}

		cfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
		if err != nil {
			return nil, "", fmt.Errorf("load aws config: %w", err)
		}
		store, err := s3store.New(awss3.NewFromConfig(cfg), s3store.Config{Bucket: u.Host})
		if err != nil {
			return nil, "", err
		}

		tableRoot := strings.Trim(u.Path, "/")
		slog.Debug("opening s3 table", "bucket", u.Host, "root", tableRoot)
		return strata.NewDefaultEngine(store), tableRoot, nil
	}

	store, err := storage.NewFS(location)
	if err != nil {
		return nil, "", fmt.Errorf("open table directory: %w", err)
	}
	slog.Debug("opening local table", "dir", location)
	return strata.NewDefaultEngine(store), "", nil
}

// parseVersionFlag converts the --at flag (-1 means latest) to a version
// pointer.
func parseVersionFlag(at int64) *strata.Version {
	if at < 0 {
		return nil
	}
	v := strata.Version(at)
	return &v
}

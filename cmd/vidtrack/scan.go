package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/vidtrack/collector"
	"github.com/use-agent/vidtrack/export"
	"github.com/use-agent/vidtrack/profile"
)

var scanCmd = &cobra.Command{
	Use:   "scan <page.html>...",
	Short: "Collect video links from saved HTML snapshots",
	Long: `Run the link collector over one or more saved copies of a feed page and
write the profile's export file. Snapshots are scanned in order into a single
result set, the same way successive DOM states are during a live session.`,
	Example: `  vidtrack scan feed-1.html feed-2.html --profile facebook-v2 -o ./out`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		p, err := resolveProfile(cfg)
		if err != nil {
			return err
		}
		count, path, err := runScan(cmd.Context(), p, args, cfg.Tracker.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %d video link(s) to %s\n", count, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// runScan collects from every snapshot into one result set and exports it.
func runScan(ctx context.Context, p profile.Profile, files []string, outDir string) (int, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	results := collector.NewResultSet()
	var src *collector.DocumentSource

	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return 0, "", fmt.Errorf("scan: %w", err)
		}
		if src == nil {
			src, err = collector.NewDocumentSource(f)
		} else {
			err = src.Reset(f)
		}
		f.Close()
		if err != nil {
			return 0, "", fmt.Errorf("scan: parse %s: %w", name, err)
		}

		c := collector.New(src, p.Strategies, p.Filter(), results)
		added, err := c.Collect(ctx)
		if err != nil {
			return 0, "", err
		}
		slog.Debug("snapshot scanned", "file", name, "new", added)
	}

	urls := results.Snapshot()
	path, err := export.Write(outDir, p.ExportFile, urls)
	if err != nil {
		return 0, "", err
	}
	return len(urls), path, nil
}

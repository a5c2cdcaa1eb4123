package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/use-agent/vidtrack/download"
	"github.com/use-agent/vidtrack/export"
	"github.com/use-agent/vidtrack/models"
)

var (
	fetchDir        string
	fetchConcurrent int
	fetchRetries    int
)

var fetchCmd = &cobra.Command{
	Use:     "fetch <links.txt>",
	Short:   "Download every URL in an exported link list",
	Example: `  vidtrack fetch video_links.txt --dir ./downloads --concurrent 3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if fetchDir != "" {
			cfg.Download.Dir = fetchDir
		}
		if fetchConcurrent > 0 {
			cfg.Download.MaxConcurrent = fetchConcurrent
		}
		if fetchRetries >= 0 {
			cfg.Download.MaxRetries = fetchRetries
		}
		if err := cfg.Download.Validate(); err != nil {
			return err
		}
		// A one-shot fetch runs with the flags and env; settings saved
		// through the API belong to the tracker.
		cfg.Download.SettingsFile = ""

		urls, err := export.ReadLinks(args[0])
		if err != nil {
			return err
		}

		dl, err := download.New(cfg.Download, download.NewClient(cfg.Browser.DefaultProxy))
		if err != nil {
			return err
		}
		defer dl.Close()

		ids, err := dl.EnqueueBulk(urls)
		if err != nil {
			return err
		}
		slog.Info("downloads queued", "count", len(ids), "dir", cfg.Download.Dir)
		dl.Wait()

		failed := 0
		for _, t := range dl.List() {
			if t.Status != models.TaskCompleted {
				failed++
				slog.Error("download failed", "url", t.URL, "error", t.Error)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "downloaded %d of %d file(s) to %s\n", len(ids)-failed, len(ids), cfg.Download.Dir)
		if failed > 0 {
			return fmt.Errorf("%d download(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "download folder (default from VIDTRACK_DOWNLOAD_DIR)")
	fetchCmd.Flags().IntVar(&fetchConcurrent, "concurrent", 0, "parallel downloads (1-10)")
	fetchCmd.Flags().IntVar(&fetchRetries, "max-retries", -1, "retry budget per file (1-20)")
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/use-agent/vidtrack/config"
	"github.com/use-agent/vidtrack/profile"
)

var (
	version   = "0.1.0"
	gitCommit = "unknown"

	// Global flags
	profileName  string
	profilesFile string
	outputDir    string
	logLevel     string
	logFormat    string
)

var rootCmd = &cobra.Command{
	Use:   "vidtrack",
	Short: "Collect direct video links from an infinite-scroll feed",
	Long: `vidtrack parks a Chromium tab on a social feed, records the media URL of
every video that streams in while the page scrolls, and writes the list to a
text file when you call stop().

Configuration comes from VIDTRACK_* environment variables (a .env file is read
first); flags override them.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, gitCommit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "platform profile (see 'vidtrack profiles')")
	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles-file", "", "YAML file with extra or overriding profiles")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory for the exported link list")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	rootCmd.SetVersionTemplate(`vidtrack {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig reads the environment and applies the global flags on top.
func loadConfig() *config.Config {
	cfg := config.Load()
	if profileName != "" {
		cfg.Tracker.Profile = profileName
	}
	if profilesFile != "" {
		cfg.Tracker.ProfilesFile = profilesFile
	}
	if outputDir != "" {
		cfg.Tracker.OutputDir = outputDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	initLogger(cfg.Log)
	return cfg
}

// resolveProfile loads the registry and picks the configured profile.
func resolveProfile(cfg *config.Config) (profile.Profile, error) {
	reg, err := profile.Load(cfg.Tracker.ProfilesFile)
	if err != nil {
		return profile.Profile{}, err
	}
	return reg.Get(cfg.Tracker.Profile)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

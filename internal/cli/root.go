package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"repologic/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	repoFlag string
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "repologic",
	Short: "Repository retrieval - segment, index and query source code",
	Long: `repologic splits a repository into overlapping line segments, embeds them
into a per-repository vector index and answers two kinds of questions: what is
near this exact line range, and what is near this free-text question.

Example usage:
  repologic chunk .                          # Segment the current directory
  repologic embed                            # Build the vector index
  repologic related internal/app.go 40 60    # Segments near a selection
  repologic explain internal/app.go 40 60    # Explain a selection
  repologic ask "where are retries handled"  # Answer a question`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}
		rootDir, err = filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("invalid root directory: %w", err)
		}

		_ = godotenv.Load(filepath.Join(rootDir, ".env")) // optional

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = newLogger(cfg.Logging)
		return nil
	},
}

// Execute runs the root command, cancelling in-flight work on interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./repologic.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "repository root (default is current directory)")
	rootCmd.PersistentFlags().StringVarP(&repoFlag, "repo", "r", "", "repository id (default is the root directory name)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// newLogger builds the process logger. Logs go to stderr so command output
// on stdout stays machine readable.
func newLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(lc.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler).With("service", "repologic")
}

// currentRepo returns the repository id commands operate on.
func currentRepo() string {
	if repoFlag != "" {
		return repoFlag
	}
	return filepath.Base(rootDir)
}

// repoPath turns a file argument into the forward-slash path segments are
// stored under.
func repoPath(arg string) (string, error) {
	if filepath.IsAbs(arg) {
		rel, err := filepath.Rel(rootDir, arg)
		if err != nil {
			return "", err
		}
		arg = rel
	}
	return filepath.ToSlash(filepath.Clean(arg)), nil
}

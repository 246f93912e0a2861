package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/reclink-cli/internal/config"
	"github.com/KaramelBytes/reclink-cli/internal/logging"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	flagWorkers int
	flagLogLvl  string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "reclink",
	Short: "reclink: find records that refer to the same entity",
	Long: `reclink groups duplicate rows of a CSV/XLSX file using exact blocking columns,
no-mismatch columns and fuzzy (Jaro-Winkler or numeric distance) columns, collapses each
group into one row, links two tables, and ranks the nearest locations between tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.reclink/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "parallel workers for blocks/chunks (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLvl, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{StrThresh: 0.9, NumThresh: 1, DefaultAgg: "mode", Workers: 1, ChunkSize: 1000, NumMatches: 10, DistanceMetric: "haversine", NAValues: []string{"NA", "NaN", "null"}, LogLevel: "info"}
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("workers") && flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if f.Changed("log-level") && flagLogLvl != "" {
		cfg.LogLevel = flagLogLvl
	}
}

// runContext carries the per-invocation logger and id.
type runContext struct {
	ID  string
	Log *zap.Logger
}

func newRun(command string) (*runContext, error) {
	level := "info"
	if cfg != nil && cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	log, err := logging.New(level, debug)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &runContext{ID: id, Log: log.With(zap.String("run_id", id), zap.String("command", command))}, nil
}

func (r *runContext) close() {
	_ = r.Log.Sync()
}

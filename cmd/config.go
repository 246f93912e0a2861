package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/reclink-cli/internal/config"
	"github.com/KaramelBytes/reclink-cli/internal/linkage"
	"github.com/KaramelBytes/reclink-cli/internal/similarity"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set reclink configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "str_thresh: %.3f\n", cfg.StrThresh)
		fmt.Fprintf(w, "num_thresh: %g\n", cfg.NumThresh)
		fmt.Fprintf(w, "allow_missing: %t\n", cfg.AllowMissing)
		fmt.Fprintf(w, "case_sensitive: %t\n", cfg.CaseSensitive)
		fmt.Fprintf(w, "default_agg: %s\n", cfg.DefaultAgg)
		fmt.Fprintf(w, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(w, "chunk_size: %d\n", cfg.ChunkSize)
		fmt.Fprintf(w, "num_matches: %d\n", cfg.NumMatches)
		fmt.Fprintf(w, "distance_metric: %s\n", cfg.DistanceMetric)
		if cfg.Delimiter != "" {
			fmt.Fprintf(w, "delimiter: %q\n", cfg.Delimiter)
		}
		fmt.Fprintf(w, "na_values: %s\n", strings.Join(cfg.NAValues, ", "))
		fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "str_thresh":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 || f > 1 {
				return fmt.Errorf("invalid float for str_thresh: %v (use 0..1)", val)
			}
			cfg.StrThresh = f
		case "num_thresh":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for num_thresh: %v", val)
			}
			cfg.NumThresh = f
		case "allow_missing", "case_sensitive":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for %s: %w", key, err)
			}
			if key == "allow_missing" {
				cfg.AllowMissing = b
			} else {
				cfg.CaseSensitive = b
			}
		case "default_agg":
			v := strings.ToLower(strings.TrimSpace(val))
			ok := false
			for _, name := range linkage.AggregationNames() {
				if name == v {
					ok = true
				}
			}
			if !ok {
				return fmt.Errorf("invalid default_agg: %s (use %s)", val, strings.Join(linkage.AggregationNames(), "|"))
			}
			cfg.DefaultAgg = v
		case "workers", "chunk_size", "num_matches":
			i, err := strconv.Atoi(val)
			if err != nil || i < 1 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			switch key {
			case "workers":
				cfg.Workers = i
			case "chunk_size":
				cfg.ChunkSize = i
			default:
				cfg.NumMatches = i
			}
		case "distance_metric":
			if _, err := similarity.Metric(val); err != nil {
				return err
			}
			cfg.DistanceMetric = strings.ToLower(strings.TrimSpace(val))
		case "delimiter":
			if _, err := parseDelimiter(val); err != nil {
				return err
			}
			cfg.Delimiter = val
		case "na_values":
			var vals []string
			for _, v := range strings.Split(val, ",") {
				if v = strings.TrimSpace(v); v != "" {
					vals = append(vals, v)
				}
			}
			cfg.NAValues = vals
		case "log_level":
			switch strings.ToLower(val) {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

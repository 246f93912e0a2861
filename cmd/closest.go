package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/geo"
	"github.com/KaramelBytes/reclink-cli/internal/table"
	"github.com/KaramelBytes/reclink-cli/internal/utils"
)

var (
	closestIDs       string
	closestLats      string
	closestLons      string
	closestN         int
	closestChunkSize int
	closestMetric    string
	closestJSON      bool
	closestOutput    string
	closestDelimiter string
)

// neighborsJSON is the --json shape of one source row.
type neighborsJSON struct {
	ID        string    `json:"id"`
	Matches   []string  `json:"matches"`
	Distances []float64 `json:"distances"`
}

var closestCmd = &cobra.Command{
	Use:   "closest <source> <reference>",
	Short: "Rank the nearest reference rows for each source row by coordinates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := newRun("closest")
		if err != nil {
			return err
		}
		defer run.close()

		gc := geo.Config{Logger: run.Log}
		if gc.IDCols, err = parsePair("id", closestIDs); err != nil {
			return err
		}
		if gc.LatCols, err = parsePair("lat", closestLats); err != nil {
			return err
		}
		if gc.LonCols, err = parsePair("lon", closestLons); err != nil {
			return err
		}
		gc.N, gc.ChunkSize, gc.Metric = closestN, closestChunkSize, closestMetric
		if cfg != nil {
			if !cmd.Flags().Changed("n") {
				gc.N = cfg.NumMatches
			}
			if !cmd.Flags().Changed("chunk-size") {
				gc.ChunkSize = cfg.ChunkSize
			}
			if !cmd.Flags().Changed("metric") {
				gc.Metric = cfg.DistanceMetric
			}
			gc.Workers = cfg.Workers
		}

		lf := linkageFlags{delimiter: closestDelimiter}
		opt, err := lf.readOptions()
		if err != nil {
			return err
		}
		src, err := table.Read(args[0], opt)
		if err != nil {
			return err
		}
		ref, err := table.Read(args[1], opt)
		if err != nil {
			return err
		}

		ranking, err := geo.GetNClosest(cmd.Context(), src, ref, gc)
		if err != nil {
			return err
		}
		run.Log.Info("ranking finished", zap.Int("source_rows", len(ranking)), zap.Int("n", gc.N))

		if closestJSON {
			out := make([]neighborsJSON, len(ranking))
			for i, nb := range ranking {
				out[i] = neighborsJSON{ID: nb.SourceID.Key(), Matches: make([]string, len(nb.RefIDs)), Distances: nb.Distances}
				for j, id := range nb.RefIDs {
					out[i].Matches[j] = id.Key()
				}
			}
			b, err := utils.PrettyJSON(out)
			if err != nil {
				return err
			}
			if closestOutput == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}
			if err := utils.SafeWriteFile(closestOutput, b); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote %d rankings to %s\n", len(out), closestOutput)
			return nil
		}

		out, err := table.New(src.Name+"_closest", []string{"id", "matches", "distances"})
		if err != nil {
			return err
		}
		for _, nb := range ranking {
			dists := make([]string, len(nb.Distances))
			for i, d := range nb.Distances {
				dists[i] = strconv.FormatFloat(d, 'f', 4, 64)
			}
			if err := out.Append(table.Record{nb.SourceID, table.Str(joinKeys(nb.RefIDs)), table.Str(strings.Join(dists, ";"))}); err != nil {
				return err
			}
		}
		return writeTable(cmd, out, closestOutput, "rankings")
	},
}

func init() {
	rootCmd.AddCommand(closestCmd)
	closestCmd.Flags().StringVar(&closestIDs, "id", "", "id columns: col (both files) or source_col,reference_col (required)")
	closestCmd.Flags().StringVar(&closestLats, "lat", "lat", "latitude columns: col or source_col,reference_col")
	closestCmd.Flags().StringVar(&closestLons, "lon", "lon", "longitude columns: col or source_col,reference_col")
	closestCmd.Flags().IntVarP(&closestN, "n", "n", 10, "neighbours to keep per source row (default from config)")
	closestCmd.Flags().IntVar(&closestChunkSize, "chunk-size", 1000, "source rows per distance matrix (default from config)")
	closestCmd.Flags().StringVar(&closestMetric, "metric", "haversine", "distance metric: haversine (km) | euclidean (degrees)")
	closestCmd.Flags().BoolVar(&closestJSON, "json", false, "emit JSON instead of CSV")
	closestCmd.Flags().StringVarP(&closestOutput, "output", "o", "", "output path (default stdout)")
	closestCmd.Flags().StringVar(&closestDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	_ = closestCmd.MarkFlagRequired("id")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/linkage"
	"github.com/KaramelBytes/reclink-cli/internal/table"
	"github.com/KaramelBytes/reclink-cli/internal/utils"
)

var (
	matchFlags      linkageFlags
	matchMatchedOut string
	matchUnmatched  string
	matchSummaryOut string
)

var matchCmd = &cobra.Command{
	Use:   "match <file>",
	Short: "Group duplicate rows and collapse each group into one row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := newRun("match")
		if err != nil {
			return err
		}
		defer run.close()

		lc, aggDefault, err := matchFlags.build(cmd)
		if err != nil {
			return err
		}
		opt, err := matchFlags.readOptions()
		if err != nil {
			return err
		}
		t, err := table.Read(args[0], opt)
		if err != nil {
			return err
		}
		lc.Agg = lc.Agg.Fill(t.Columns(), aggDefault)
		lc.Logger = run.Log

		run.Log.Info("matching", zap.String("file", args[0]), zap.Int("rows", t.Len()))
		res, err := linkage.Match(cmd.Context(), t, lc)
		if err != nil {
			return err
		}
		run.Log.Info("matched", zap.Int("groups", len(res.Groups)), zap.Int("unmatched", len(res.UnmatchedRows)))

		if err := writeTable(cmd, res.Matched, matchMatchedOut, "matched rows"); err != nil {
			return err
		}
		if matchUnmatched != "" {
			if err := writeTable(cmd, res.Unmatched, matchUnmatched, "unmatched rows"); err != nil {
				return err
			}
		}
		if matchSummaryOut != "" {
			md := res.Summary(run.ID, lc).Markdown()
			if err := utils.SafeWriteFile(matchSummaryOut, []byte(md)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote summary to %s\n", matchSummaryOut)
		}
		return nil
	},
}

// writeTable writes t as CSV to path, or to stdout when path is empty.
func writeTable(cmd *cobra.Command, t *table.Table, path, what string) error {
	if path == "" {
		return table.EncodeCSV(cmd.OutOrStdout(), t, ',')
	}
	if err := table.WriteCSV(path, t); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %d %s to %s\n", t.Len(), what, path)
	return nil
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchFlags.register(matchCmd, true)
	matchCmd.Flags().StringVarP(&matchMatchedOut, "matched-out", "o", "", "path for the aggregated rows (default stdout)")
	matchCmd.Flags().StringVar(&matchUnmatched, "unmatched-out", "", "path for rows that matched nothing")
	matchCmd.Flags().StringVar(&matchSummaryOut, "summary", "", "optional path to write a Markdown run summary")
}

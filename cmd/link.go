package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/linkage"
	"github.com/KaramelBytes/reclink-cli/internal/table"
)

var (
	linkFlags      linkageFlags
	linkIDs        string
	linkColMap     []string
	linkMaxMatches int
	linkOutput     string
)

var linkCmd = &cobra.Command{
	Use:   "link <to-match> <comparison>",
	Short: "Find candidate matches for each row of one file in another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := newRun("link")
		if err != nil {
			return err
		}
		defer run.close()

		base, _, err := linkFlags.build(cmd)
		if err != nil {
			return err
		}
		ids, err := parsePair("id", linkIDs)
		if err != nil {
			return err
		}
		colMap, err := parseColMap(linkColMap)
		if err != nil {
			return err
		}
		opt, err := linkFlags.readOptions()
		if err != nil {
			return err
		}
		toMatch, err := table.Read(args[0], opt)
		if err != nil {
			return err
		}
		comparison, err := table.Read(args[1], opt)
		if err != nil {
			return err
		}
		base.Logger = run.Log
		lc := linkage.LinkConfig{Config: base, IDCols: ids, ColumnMap: colMap, MaxMatches: linkMaxMatches}

		links, err := linkage.Link(cmd.Context(), toMatch, comparison, lc)
		if err != nil {
			return err
		}
		out, err := table.New(toMatch.Name+"_links", []string{"id", "matches", "scores"})
		if err != nil {
			return err
		}
		matched := 0
		for _, l := range links {
			refs := make([]table.Value, len(l.Matches))
			scores := make([]string, len(l.Matches))
			for i, c := range l.Matches {
				refs[i] = c.ID
				scores[i] = strconv.FormatFloat(c.Score, 'f', 4, 64)
			}
			if len(l.Matches) > 0 {
				matched++
			}
			if err := out.Append(table.Record{l.ID, table.Str(joinKeys(refs)), table.Str(strings.Join(scores, ";"))}); err != nil {
				return err
			}
		}
		run.Log.Info("link finished", zap.Int("rows", len(links)), zap.Int("rows_with_matches", matched))
		return writeTable(cmd, out, linkOutput, "rows")
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
	linkFlags.register(linkCmd, false)
	linkCmd.Flags().StringVar(&linkIDs, "id", "", "id columns: col (both files) or to_match_col,comparison_col (required)")
	linkCmd.Flags().StringArrayVar(&linkColMap, "colmap", nil, "rename a to-match column before matching: from=to (repeatable)")
	linkCmd.Flags().IntVar(&linkMaxMatches, "max-matches", 0, "keep at most N candidates per row (0 = all)")
	linkCmd.Flags().StringVarP(&linkOutput, "output", "o", "", "path for the CSV result (default stdout)")
	_ = linkCmd.MarkFlagRequired("id")
}

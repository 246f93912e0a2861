package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/linkage"
	"github.com/KaramelBytes/reclink-cli/internal/table"
)

var (
	dedupFlags  linkageFlags
	dedupID     string
	dedupOutput string
)

var dedupCmd = &cobra.Command{
	Use:   "dedup <file>",
	Short: "List, for every row, the ids of the rows it duplicates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := newRun("dedup")
		if err != nil {
			return err
		}
		defer run.close()

		lc, _, err := dedupFlags.build(cmd)
		if err != nil {
			return err
		}
		opt, err := dedupFlags.readOptions()
		if err != nil {
			return err
		}
		t, err := table.Read(args[0], opt)
		if err != nil {
			return err
		}
		lc.Logger = run.Log

		dups, err := linkage.DeDup(cmd.Context(), t, lc, dedupID)
		if err != nil {
			return err
		}
		out, err := table.New(t.Name+"_dedup", []string{"id", "duplicates"})
		if err != nil {
			return err
		}
		for _, d := range dups {
			if err := out.Append(table.Record{d.ID, table.Str(joinKeys(d.Duplicates))}); err != nil {
				return err
			}
		}
		run.Log.Info("dedup finished", zap.String("file", args[0]), zap.Int("rows", len(dups)))
		return writeTable(cmd, out, dedupOutput, "rows")
	},
}

func joinKeys(vals []table.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Key()
	}
	return strings.Join(parts, ";")
}

func init() {
	rootCmd.AddCommand(dedupCmd)
	dedupFlags.register(dedupCmd, false)
	dedupCmd.Flags().StringVar(&dedupID, "id", "", "id column reported for each row (required)")
	dedupCmd.Flags().StringVarP(&dedupOutput, "output", "o", "", "path for the CSV result (default stdout)")
	_ = dedupCmd.MarkFlagRequired("id")
}

package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/reclink-cli/internal/config"
	"github.com/KaramelBytes/reclink-cli/internal/utils"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a commented linkage spec template",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "reclink.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		// Refuse to overwrite an existing spec.
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("spec already exists at %s (use --force to overwrite)", path)
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat spec: %w", err)
		}
		if err := utils.SafeWriteFile(path, []byte(cfgpkg.SpecTemplate)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Spec written: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}

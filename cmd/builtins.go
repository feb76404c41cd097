package cmd

import (
	"fmt"

	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/spf13/cobra"
)

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range shell.ListBuiltins() {
			builtin := shell.LookupBuiltin(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-8s %s\n", name, builtin.Kind, builtin.Short)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}

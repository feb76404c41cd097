package cmd

import (
	"fmt"
	"log"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a default configuration and rc file.",
	Long: `Write a default configuration and rc file to dir, or to the directory
given by --config. Existing files are left alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		dir := cfgPath
		if len(args) == 1 {
			dir = args[0]
		}

		cfg, err := config.Initialize(dir, log.New(cmd.ErrOrStderr(), "", 0))
		if err != nil {
			return fmt.Errorf("couldn't initialize %s: %w", dir, err)
		}

		if path := cfg.HistoryPath(); path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "history: %s\n", path)
		}
		if cfg.RCFile != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "rc file: %s\n", cfg.RCFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

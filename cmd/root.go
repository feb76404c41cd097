package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath     string
	commandLine string

	// exitStatus is the status of the last line the shell ran.
	exitStatus int
)

func loadConfig() (*config.Configuration, error) {
	return config.Load(cfgPath)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipesh",
	Short: "A small interactive shell",
	Long: `pipesh reads lines of input, expands shell variables, and runs
pipelines of builtins and programs with optional output redirection.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		switch {
		case errors.Is(err, fs.ErrNotExist):
			configuration = config.Default()
		case err != nil:
			return err
		}

		eventLog, err := configuration.OpenEventLog()
		if err != nil {
			return err
		}
		defer eventLog.Close()

		sh, err := shell.New(configuration, logger.NewJsonLinesLogRecorder(eventLog))
		if err != nil {
			return err
		}
		sh.Stdout = cmd.OutOrStdout()
		sh.Stderr = cmd.ErrOrStderr()

		switch {
		case cmd.Flags().Changed("command"):
			_ = sh.RunLine(commandLine)
		case term.IsTerminal(int(os.Stdin.Fd())):
			err = sh.RunInteractive()
		default:
			err = sh.RunScript(cmd.InOrStdin())
		}

		if cerr := sh.Close(); err == nil {
			err = cerr
		}
		exitStatus = sh.LastStatus()
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	log.SetPrefix("[" + shell.ProgramName + "] ")
	log.SetFlags(0)

	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultDir(), "config directory")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single line and exit")
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configFile string
	envFile    string
	verbose    bool
	ephemeral  bool
}

// NewRootCmd builds the taskboard command tree. Without a subcommand it
// launches the interactive board.
func NewRootCmd(version string) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "taskboard",
		Short: "A single-page task list with due-today reminders",
		Long: `taskboard keeps a list of tasks with a due date and a priority.

Run it without arguments for the interactive board, or use the subcommands
to script the same operations from a shell.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/taskboard/config.yaml)")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file loaded before the environment is read (default .env)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&flags.ephemeral, "ephemeral", false, "keep tasks in memory only")

	root.AddCommand(
		newAddCmd(flags),
		newEditCmd(flags),
		newDoneCmd(flags),
		newRmCmd(flags),
		newLsCmd(flags),
		newWatchCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(version),
	)
	root.Version = version
	return root
}

func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

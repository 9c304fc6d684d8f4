// Command actorsim runs an actor stage from YAML configs, streams poses to
// loopback observers, and writes save slots.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

func newRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:           "actorsim",
		Short:         "Run and inspect actor stages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var (
				l   *zap.Logger
				err error
			)
			if debug {
				l, err = zap.NewDevelopment()
			} else {
				l, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "development logging")
	root.AddCommand(newRunCmd(), newInspectCmd(), newSavesCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

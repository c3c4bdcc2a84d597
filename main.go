package main

import (
	"os"

	"github.com/cottand/qinfer/cmd"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "qinfer [subcommand]",
	Short:        "qinfer infers type qualifiers by solving their constraints with SAT",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.SolveCmd)
	rootCmd.AddCommand(cmd.LatticeCmd)
}

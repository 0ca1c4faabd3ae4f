package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gcd",
	Short: "go-control-deps - Control dependence analysis for Go and Python",
	Long: `go-control-deps builds control flow graphs, post-dominator trees, and
control dependence graphs for individual functions.

Commands:
  cfg         Extract the control flow graph of a function
  postdom     Compute the post-dominator tree of a function
  cdg         Build the control dependence graph of a function
  controls    Ask whether one block controls another
  influences  Ask whether two blocks are control-related
  functions   List the functions defined in a source file
  warm        Build and cache graphs for a whole tree
  notify      Invalidate cached graphs for changed files
  doctor      Run health checks on configuration and parsers

Use "gcd [command] --help" for more information about a command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	// Add subcommands
	RootCmd.AddCommand(cfgCmd)
	RootCmd.AddCommand(postdomCmd)
	RootCmd.AddCommand(cdgCmd)
	RootCmd.AddCommand(controlsCmd)
	RootCmd.AddCommand(influencesCmd)
	RootCmd.AddCommand(functionsCmd)
	RootCmd.AddCommand(warmCmd)
	RootCmd.AddCommand(notifyCmd)
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/internal/log"
	"github.com/l3aro/go-control-deps/pkg/client"
	"github.com/l3aro/go-control-deps/pkg/types"
)

// warmCmd represents the warm command
var warmCmd = &cobra.Command{
	Use:   "warm [paths...]",
	Short: "Build and cache graphs for a whole tree",
	Long: `Scans the given paths, builds the control dependence graph of every
function found, and persists the results to the graph cache. Files that
have not changed since the last warm are skipped.

Examples:
  gcd warm .
  gcd warm ./internal ./pkg --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		languages, _ := cmd.Flags().GetStringSlice("language")

		paths := args
		if len(paths) == 0 {
			paths = []string{"."}
		}

		var spinner *log.ProgressSpinner
		if !jsonOutput {
			spinner = log.NewProgressSpinner("Warming graph cache...")
			spinner.Start()
		}

		router := client.NewRouter()
		report, err := router.Warm(context.Background(), client.WarmParams{
			Paths:     paths,
			Languages: languages,
		})
		if spinner != nil {
			spinner.Stop()
		}
		if err != nil {
			return fmt.Errorf("warming cache: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		printWarmReport(report)
		return nil
	},
}

func printWarmReport(report *types.WarmReport) {
	fmt.Printf("Scanned %d files (%d unchanged, skipped)\n", report.FilesScanned, report.FilesSkipped)
	fmt.Printf("Built %d graphs in %dms\n", report.GraphsBuilt, report.DurationMilli)

	if report.Failures > 0 {
		fmt.Printf("Failures: %d\n", report.Failures)
		for _, file := range report.Files {
			for _, msg := range file.Errors {
				fmt.Printf("  %s: %s\n", file.Path, msg)
			}
		}
	}
}

func init() {
	warmCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	warmCmd.Flags().StringSlice("language", nil, "Restrict to the given languages (go, python)")
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/pkg/extractor"
)

// functionsCmd represents the functions command
var functionsCmd = &cobra.Command{
	Use:   "functions [file]",
	Short: "List the functions defined in a source file",
	Long: `Parses the source file and lists every function and method it defines,
with line ranges. Useful for discovering the function names the graph
commands expect.

Examples:
  gcd functions ./main.go
  gcd functions ./service.py --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		refs, err := extractor.ListFunctions(args[0])
		if err != nil {
			return fmt.Errorf("listing functions: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(refs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if len(refs) == 0 {
			fmt.Println("No functions found")
			return nil
		}

		for _, ref := range refs {
			kind := "func"
			if ref.IsMethod {
				kind = "method"
			}
			fmt.Printf("%-8s %s (lines %d-%d)\n", kind, ref.QualifiedName(), ref.StartLine, ref.EndLine)
		}
		return nil
	},
}

func init() {
	functionsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

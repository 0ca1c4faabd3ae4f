package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/pkg/client"
)

// influencesCmd represents the influences command
var influencesCmd = &cobra.Command{
	Use:   "influences [file] [function] [blockA] [blockB]",
	Short: "Ask whether two blocks are control-related",
	Long: `Answers whether either block controls the other. Unlike controls, this
query is symmetric: swapping the two blocks gives the same answer.

Examples:
  gcd influences ./main.go process block_1 block_3
  gcd influences ./service.py handle_request block_2 block_0 --json`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		router := client.NewRouter()
		verdict, err := router.Influences(context.Background(), client.QueryParams{
			File:     args[0],
			Function: args[1],
			BlockA:   args[2],
			BlockB:   args[3],
		})
		if err != nil {
			return fmt.Errorf("answering query: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(verdict, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if verdict.Holds {
			fmt.Printf("%s and %s are control-related in %s\n", verdict.BlockA, verdict.BlockB, verdict.FunctionName)
		} else {
			fmt.Printf("%s and %s are not control-related in %s\n", verdict.BlockA, verdict.BlockB, verdict.FunctionName)
		}
		return nil
	},
}

func init() {
	influencesCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

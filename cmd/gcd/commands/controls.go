package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/pkg/client"
)

// controlsCmd represents the controls command
var controlsCmd = &cobra.Command{
	Use:   "controls [file] [function] [blockA] [blockB]",
	Short: "Ask whether one block controls another",
	Long: `Answers whether the execution of blockB depends on the branch taken at
blockA, per the control dependence graph of the function.

Examples:
  gcd controls ./main.go process block_1 block_3
  gcd controls ./service.py handle_request block_0 block_2 --json`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		router := client.NewRouter()
		verdict, err := router.Controls(context.Background(), client.QueryParams{
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
			fmt.Printf("%s controls %s in %s\n", verdict.BlockA, verdict.BlockB, verdict.FunctionName)
		} else {
			fmt.Printf("%s does not control %s in %s\n", verdict.BlockA, verdict.BlockB, verdict.FunctionName)
		}
		return nil
	},
}

func init() {
	controlsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

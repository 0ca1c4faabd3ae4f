package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/pkg/client"
)

// postdomCmd represents the postdom command
var postdomCmd = &cobra.Command{
	Use:   "postdom [file] [function]",
	Short: "Compute the post-dominator tree of a function",
	Long: `Builds the control flow graph of the named function and computes its
post-dominator tree over a virtual exit node. Every block is mapped to its
immediate post-dominator.

Examples:
  gcd postdom ./main.go process
  gcd postdom ./service.py handle_request --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		router := client.NewRouter()
		tree, err := router.PostDom(context.Background(), client.GraphParams{
			File:     args[0],
			Function: args[1],
		})
		if err != nil {
			return fmt.Errorf("building post-dominator tree: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(tree, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Function: %s\n", tree.FunctionName)
		fmt.Printf("Virtual exit: %s\n\n", tree.VirtualExit)

		blocks := make([]string, 0, len(tree.ImmediatePostDominators))
		for block := range tree.ImmediatePostDominators {
			blocks = append(blocks, block)
		}
		sort.Strings(blocks)

		for _, block := range blocks {
			fmt.Printf("%s -> %s\n", block, tree.ImmediatePostDominators[block])
		}
		return nil
	},
}

func init() {
	postdomCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/pkg/cfg"
	"github.com/l3aro/go-control-deps/pkg/client"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg [file] [function]",
	Short: "Extract the control flow graph of a function",
	Long: `Parses the source file, locates the named function, and prints its
control flow graph: basic blocks, edges, and cyclomatic complexity.

Examples:
  gcd cfg ./main.go process
  gcd cfg ./service.py handle_request --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		router := client.NewRouter()
		info, err := router.CFG(context.Background(), client.GraphParams{
			File:     args[0],
			Function: args[1],
		})
		if err != nil {
			return fmt.Errorf("extracting CFG: %w", err)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		printCFGInfo(info)
		return nil
	},
}

func printCFGInfo(info *cfg.CFGInfo) {
	fmt.Printf("Function: %s\n", info.FunctionName)
	fmt.Printf("Entry: %s\n", info.EntryBlockID)
	fmt.Printf("Blocks: %d  Edges: %d  Complexity: %d\n\n",
		len(info.Blocks), len(info.Edges), info.CyclomaticComplexity)

	ids := make([]string, 0, len(info.Blocks))
	for id := range info.Blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		block := info.Blocks[id]
		fmt.Printf("%s [%s] lines %d-%d\n", block.ID, block.Type, block.StartLine, block.EndLine)
		for _, stmt := range block.Statements {
			fmt.Printf("    %s\n", stmt)
		}
	}

	fmt.Println()
	for _, edge := range info.Edges {
		label := ""
		if edge.EdgeType != "" && edge.EdgeType != "unconditional" {
			label = fmt.Sprintf(" [%s]", edge.EdgeType)
		}
		fmt.Printf("%s -> %s%s\n", edge.SourceID, edge.TargetID, label)
	}
}

func init() {
	cfgCmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

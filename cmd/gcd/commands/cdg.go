package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/pkg/cdg"
	"github.com/l3aro/go-control-deps/pkg/client"
)

// cdgCmd represents the cdg command
var cdgCmd = &cobra.Command{
	Use:   "cdg [file] [function]",
	Short: "Build the control dependence graph of a function",
	Long: `Builds the control dependence graph of the named function. By default
nodes with identical control conditions are folded under region nodes; use
--raw to keep the uncompacted graph.

Examples:
  gcd cdg ./main.go process
  gcd cdg ./main.go process --dot | dot -Tsvg -o graph.svg
  gcd cdg ./service.py handle_request --raw --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		dotOutput, _ := cmd.Flags().GetBool("dot")
		raw, _ := cmd.Flags().GetBool("raw")

		router := client.NewRouter()
		info, err := router.CDG(context.Background(), client.CDGParams{
			File:     args[0],
			Function: args[1],
			Raw:      raw,
		})
		if err != nil {
			return fmt.Errorf("building CDG: %w", err)
		}

		if dotOutput {
			graph, err := cdg.FromInfo(info)
			if err != nil {
				return fmt.Errorf("rebuilding graph: %w", err)
			}
			return graph.WriteDOT(os.Stdout)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		printCDGInfo(info)
		return nil
	},
}

func printCDGInfo(info *cdg.CDGInfo) {
	regions := 0
	for _, node := range info.Nodes {
		if node.Region {
			regions++
		}
	}

	fmt.Printf("Function: %s\n", info.FunctionName)
	fmt.Printf("Nodes: %d (%d regions)  Edges: %d\n\n", len(info.Nodes), regions, len(info.Edges))

	for _, edge := range info.Edges {
		label := ""
		switch edge.Kind {
		case cdg.EdgeKindTrue:
			label = " [T]"
		case cdg.EdgeKindFalse:
			label = " [F]"
		}
		fmt.Printf("%s -> %s%s\n", describeNode(info, edge.From), describeNode(info, edge.To), label)
	}
}

func describeNode(info *cdg.CDGInfo, id int) string {
	if id < 0 || id >= len(info.Nodes) {
		return fmt.Sprintf("n%d", id)
	}
	node := info.Nodes[id]
	if node.Region {
		return fmt.Sprintf("region_%d", node.ID)
	}
	if node.Block == "" {
		return "entry"
	}
	return node.Block
}

func init() {
	cdgCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cdgCmd.Flags().Bool("dot", false, "Output in Graphviz DOT format")
	cdgCmd.Flags().Bool("raw", false, "Skip region compaction")
}

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/pkg/client"
)

// notifyCmd represents the notify command
var notifyCmd = &cobra.Command{
	Use:   "notify [files...]",
	Short: "Invalidate cached graphs for changed files",
	Long: `Drops every cached graph built from the given files and marks them
dirty so the next warm rebuilds them. Editors and file watchers can call
this when a file changes.

Examples:
  gcd notify /path/to/file.go
  gcd notify ./src/main.go ./src/util.py`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			info, err := os.Stat(path)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("file does not exist: %s", path)
				}
				return fmt.Errorf("stat file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("path must be a file, not a directory: %s", path)
			}
		}

		router := client.NewRouter()
		result, err := router.Invalidate(context.Background(), client.InvalidateParams{Files: args})
		if err != nil {
			return fmt.Errorf("invalidating: %w", err)
		}

		fmt.Printf("Invalidated %d cached graphs across %d files\n", result.Invalidated, len(args))
		return nil
	},
}

// Package main implements the go-control-deps CLI (gcd).
// It provides commands for extracting control flow and control dependence
// graphs, answering control queries, and managing the daemon.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/cmd/gcd/commands"
	"github.com/l3aro/go-control-deps/internal/daemon"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	// Add start command
	startCmd := &cobra.Command{
		Use:   "start [flags]",
		Short: "Start daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			daemonPath, _ := cmd.Flags().GetString("daemon")
			socketPath, _ := cmd.Flags().GetString("socket")
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("v")
			background, _ := cmd.Flags().GetBool("d")
			return runStart(daemonPath, socketPath, configPath, verbose, background)
		},
	}
	startCmd.Flags().String("daemon", "", "Path to daemon binary")
	startCmd.Flags().String("socket", "", "Unix socket path")
	startCmd.Flags().String("config", "", "Config file path")
	startCmd.Flags().BoolP("v", "v", false, "Verbose logging")
	startCmd.Flags().BoolP("d", "d", false, "Run in background")

	// Add stop command
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop()
		},
	}

	// Add status command
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			return runStatus(jsonOutput)
		},
	}
	statusCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	// Add all commands to root
	commands.RootCmd.AddCommand(startCmd)
	commands.RootCmd.AddCommand(stopCmd)
	commands.RootCmd.AddCommand(statusCmd)

	commands.RootCmd.Flags().BoolP("version", "v", false, "Print version information")
	commands.RootCmd.SetVersionTemplate(`gcd version {{.Version}}
`)
	commands.RootCmd.Version = version

	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runStart(daemonPath, socketPath, configPath string, verbose, background bool) error {
	opts := &daemon.StartOptions{
		DaemonPath:   daemonPath,
		SocketPath:   socketPath,
		ConfigPath:   configPath,
		Verbose:      verbose,
		WaitForReady: true,
		ReadyTimeout: 10 * time.Second,
		Background:   background,
	}

	result, err := daemon.Start(opts)
	if err != nil {
		return err
	}

	if !result.Success {
		if result.Error != "" {
			fmt.Printf("Failed to start daemon: %s\n", result.Error)
		}
		if result.PID > 0 {
			fmt.Printf("Daemon already running with PID %d\n", result.PID)
		}
		return nil
	}

	fmt.Printf("Daemon started with PID %d\n", result.PID)
	return nil
}

func runStop() error {
	result, err := daemon.Stop()
	if err != nil {
		return err
	}

	if !result.Success {
		if result.Error != "" {
			fmt.Printf("Failed to stop daemon: %s\n", result.Error)
		}
		return nil
	}

	fmt.Printf("Daemon stopped (PID: %d)\n", result.PID)
	return nil
}

func runStatus(jsonOutput bool) error {
	result, err := daemon.GetStatus()
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if result.Error != "" {
		fmt.Printf("Status: %s\n", result.Status)
		fmt.Printf("Error: %s\n", result.Error)
		return nil
	}

	fmt.Printf("Status: %s\n", result.Status)
	if result.PID > 0 {
		fmt.Printf("PID: %d\n", result.PID)
	}
	if result.Version != "" {
		fmt.Printf("Version: %s\n", result.Version)
	}
	if !result.StartedAt.IsZero() {
		fmt.Printf("Started: %s\n", result.StartedAt.Format(time.RFC3339))
	}

	return nil
}

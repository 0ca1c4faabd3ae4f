package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/internal/config"
	"github.com/l3aro/go-control-deps/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and parsers",
	Long: `Checks the effective configuration and verifies that the language
parsers, cache directory, and daemon are in working order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, configPath, err := loadConfigWithPath()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		result, err := healthcheck.Check(cfg, configPath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(result)

		if !result.Healthy() {
			return fmt.Errorf("health check failed: one or more checks reported errors")
		}
		return nil
	},
}

// loadConfigWithPath resolves the effective config file the same way
// config.Load does, but also reports which file won. Falls back to
// defaults when no config file exists.
func loadConfigWithPath() (*config.Config, string, error) {
	projectConfigPath := ".gcd/config.yaml"
	projectExists := fileExists(projectConfigPath)

	home, _ := os.UserHomeDir()
	globalConfigPath := ""
	if home != "" {
		globalConfigPath = filepath.Join(home, ".gcd", "config.yaml")
	}
	globalExists := fileExists(globalConfigPath)

	var effectivePath string
	if projectExists {
		effectivePath = projectConfigPath
	} else if globalExists {
		effectivePath = globalConfigPath
	} else {
		return config.DefaultConfig(), "", nil
	}

	cfg, err := config.LoadFromFile(effectivePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config from %s: %w", effectivePath, err)
	}

	return cfg, effectivePath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func displayDoctorResult(result *healthcheck.Result) {
	if result.ConfigPath != "" {
		fmt.Printf("Using config: %s (%s)\n\n", result.ConfigPath, result.ConfigScope)
	} else {
		fmt.Printf("Using config: built-in defaults (run 'gcd init' to create one)\n\n")
	}

	for _, check := range result.Checks {
		fmt.Printf("%s %-16s %s\n", formatStatusIcon(check.Status), check.Name, check.Detail)
		if check.Error != "" {
			fmt.Printf("    %s\n", check.Error)
		}
	}
}

func formatStatusIcon(status string) string {
	switch status {
	case "ok":
		return "✓"
	case "warn":
		return "◐"
	case "error":
		return "✗"
	default:
		return "?"
	}
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

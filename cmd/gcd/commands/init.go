package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-control-deps/internal/config"
	"github.com/l3aro/go-control-deps/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gcd configuration interactively",
	Long: `Guides you through setting up gcd configuration step by step.
Creates a config file with language, cache, and graph settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	// === SECTION 1: Languages ===
	languages := []string{"go", "python"}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Languages - Analyzed when extracting and warming").
				Description("Select the languages to enable").
				Options(
					huh.NewOption("Go", "go").Selected(true),
					huh.NewOption("Python", "python").Selected(true),
				).
				Value(&languages),
		),
	)
	err := form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	if len(languages) == 0 {
		return fmt.Errorf("at least one language must be enabled")
	}

	// === SECTION 2: Cache ===
	cacheDir := ".gcd/cache"
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cache directory").
				Placeholder(".gcd/cache").
				Value(&cacheDir),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	maxEntries := "1024"
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Maximum cached graphs").
				Placeholder("1024").
				Value(&maxEntries),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Graph Limits ===
	maxBlocks := "10000"
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Maximum CFG blocks per function (0 = unlimited)").
				Placeholder("10000").
				Value(&maxBlocks),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	var rawGraph bool
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Region compaction").
				Description("Fold nodes with identical control conditions under regions?").
				Affirmative("Yes, compact (recommended)").
				Negative("No, keep raw graphs").
				Value(&rawGraph),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	// The confirm asks about compaction; the config flag stores the inverse.
	rawGraph = !rawGraph

	// === SECTION 4: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.gcd/config.yaml)", "global"),
					huh.NewOption("Project (./.gcd/config.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// Determine save path
	var configPath string
	if saveLocationChoice == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		configPath = filepath.Join(home, ".gcd", "config.yaml")
	} else {
		configPath = ".gcd/config.yaml"
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		err = form.Run()
		if err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg := config.DefaultConfig()
	cfg.Languages = languages
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if n, err := strconv.Atoi(strings.TrimSpace(maxEntries)); err == nil && n > 0 {
		cfg.CacheMaxEntries = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(maxBlocks)); err == nil && n >= 0 {
		cfg.MaxBlocks = n
	}
	cfg.RawGraph = rawGraph

	// Validate config before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Show config preview
	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Languages: %s\n", strings.Join(cfg.Languages, ", "))
	fmt.Printf("Cache dir: %s\n", cfg.CacheDir)
	fmt.Printf("Max cached graphs: %d\n", cfg.CacheMaxEntries)
	if cfg.MaxBlocks > 0 {
		fmt.Printf("Max CFG blocks: %d\n", cfg.MaxBlocks)
	} else {
		fmt.Println("Max CFG blocks: unlimited")
	}
	if cfg.RawGraph {
		fmt.Println("Region compaction: off")
	} else {
		fmt.Println("Region compaction: on")
	}
	fmt.Println("================================")

	// Save config
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// === SECTION 5: Health Check ===
	fmt.Println("\n=== Running Health Check ===")

	loadedCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	result, err := healthcheck.Check(loadedCfg, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println()
	displayDoctorResult(result)

	fmt.Println("\n=== Initialization Complete ===")
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}

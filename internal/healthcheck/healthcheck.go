package healthcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/l3aro/go-control-deps/internal/config"
	"github.com/l3aro/go-control-deps/internal/daemon"
)

// CheckStatus is the outcome of a single health check.
type CheckStatus struct {
	Name   string // "config", "parser:go", "cache-dir", ...
	Status string // "ok", "warn", "error"
	Detail string
	Error  string
}

// Result contains the full health check output for display.
type Result struct {
	ConfigPath  string
	ConfigScope string // "global" or "project"
	Checks      []CheckStatus
}

// Healthy reports whether no check failed. Warnings do not count as failures.
func (r *Result) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == "error" {
			return false
		}
	}
	return true
}

// Check runs all health checks against the given config.
// configPath is the config file actually in use (may be empty when
// running on defaults).
func Check(cfg *config.Config, configPath string) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &Result{
		ConfigPath:  configPath,
		ConfigScope: scopeFromPath(configPath),
	}

	result.Checks = append(result.Checks, checkConfig(cfg))
	result.Checks = append(result.Checks, checkParsers(cfg)...)
	result.Checks = append(result.Checks, checkCacheDir(cfg))
	result.Checks = append(result.Checks, checkCacheSnapshot(cfg))
	result.Checks = append(result.Checks, checkDaemon())

	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".gcd")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

// checkConfig validates the effective configuration.
func checkConfig(cfg *config.Config) CheckStatus {
	status := CheckStatus{Name: "config"}

	if err := cfg.Validate(); err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}

	status.Status = "ok"
	status.Detail = fmt.Sprintf("languages: %s", strings.Join(cfg.Languages, ", "))
	return status
}

// checkParsers verifies that a grammar is available for every enabled
// language by parsing a trivial snippet.
func checkParsers(cfg *config.Config) []CheckStatus {
	var checks []CheckStatus

	for _, lang := range cfg.Languages {
		check := CheckStatus{Name: "parser:" + lang}

		var language *sitter.Language
		var probe string
		switch lang {
		case "go":
			language = golang.GetLanguage()
			probe = "package p\n"
		case "python":
			language = python.GetLanguage()
			probe = "pass\n"
		default:
			check.Status = "error"
			check.Error = fmt.Sprintf("unsupported language: %s", lang)
			checks = append(checks, check)
			continue
		}

		parser := sitter.NewParser()
		parser.SetLanguage(language)
		tree := parser.Parse(nil, []byte(probe))
		if tree == nil || tree.RootNode() == nil {
			check.Status = "error"
			check.Error = "parser produced no syntax tree"
		} else {
			check.Status = "ok"
			tree.Close()
		}
		checks = append(checks, check)
	}

	return checks
}

// checkCacheDir verifies the cache directory exists and is writable.
func checkCacheDir(cfg *config.Config) CheckStatus {
	status := CheckStatus{Name: "cache-dir", Detail: cfg.CacheDir}

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("cannot create cache directory: %v", err)
		return status
	}

	probe := filepath.Join(cfg.CacheDir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		status.Status = "error"
		status.Error = fmt.Sprintf("cache directory not writable: %v", err)
		return status
	}
	os.Remove(probe)

	status.Status = "ok"
	return status
}

// checkCacheSnapshot reports whether a persisted graph snapshot exists.
// A missing snapshot is not an error, just a cold cache.
func checkCacheSnapshot(cfg *config.Config) CheckStatus {
	status := CheckStatus{Name: "cache-snapshot"}

	path := filepath.Join(cfg.CacheDir, "graphs.bin")
	info, err := os.Stat(path)
	if err != nil {
		status.Status = "warn"
		status.Detail = "no snapshot yet (cache is cold)"
		return status
	}

	status.Status = "ok"
	status.Detail = fmt.Sprintf("%s (%d bytes)", path, info.Size())
	return status
}

// checkDaemon reports daemon availability. A stopped daemon is a warning
// since every command can fall back to in-process execution.
func checkDaemon() CheckStatus {
	status := CheckStatus{Name: "daemon"}

	ds, err := daemon.CheckStatus()
	if err != nil {
		status.Status = "warn"
		status.Error = err.Error()
		return status
	}

	switch {
	case ds.Running && ds.Ready:
		status.Status = "ok"
		status.Detail = fmt.Sprintf("running (pid %d)", ds.PID)
	case ds.Running:
		status.Status = "warn"
		status.Detail = fmt.Sprintf("starting (pid %d)", ds.PID)
	default:
		status.Status = "warn"
		status.Detail = "not running (commands fall back to in-process)"
	}

	return status
}

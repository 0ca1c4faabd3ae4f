//go:build windows
// +build windows

package daemon

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

func Start(opts *StartOptions) (*StartResult, error) {
	status, err := CheckStatus()
	if err == nil && status.Running && status.Ready {
		return &StartResult{
			Success: false,
			PID:     status.PID,
			Error:   "daemon already running",
		}, nil
	}

	daemonPath := opts.DaemonPath
	if daemonPath == "" {
		daemonPath = findDaemonBinary()
		if daemonPath == "" {
			return nil, fmt.Errorf("daemon binary not found")
		}
	}

	env := os.Environ()
	if opts.SocketPath != "" {
		env = append(env, "GCD_SOCKET_PATH="+opts.SocketPath)
	}
	if opts.ConfigPath != "" {
		env = append(env, "GCD_CONFIG_PATH="+opts.ConfigPath)
	}
	if opts.Verbose {
		env = append(env, "GCD_VERBOSE=true")
	}

	cmd := &exec.Cmd{
		Path: daemonPath,
		Env:  env,
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting daemon: %w", err)
	}

	pid := cmd.Process.Pid
	startedAt := time.Now()

	if err := WritePID(pid); err != nil {
		cmd.Process.Kill()
		return nil, fmt.Errorf("writing PID file: %w", err)
	}

	result := &StartResult{
		Success:   true,
		PID:       pid,
		StartedAt: startedAt,
	}

	if opts.WaitForReady {
		timeout := opts.ReadyTimeout
		if timeout <= 0 {
			timeout = ReadyTimeout
		}
		if err := waitForReady(timeout); err != nil {
			return result, fmt.Errorf("waiting for ready: %w", err)
		}
		result.Ready = true
	}

	return result, nil
}

func Stop() (*StopResult, error) {
	pid, err := ReadPID()
	if err != nil {
		return nil, fmt.Errorf("reading PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("finding process: %w", err)
	}

	if err := process.Kill(); err != nil {
		return nil, fmt.Errorf("killing process: %w", err)
	}

	RemovePID()
	RemoveStatus()

	return &StopResult{
		Success:   true,
		PID:       pid,
		StoppedAt: time.Now(),
	}, nil
}

func findDaemonBinary() string {
	exePath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeDir := filepath.Dir(exePath)
	daemonPath := filepath.Join(exeDir, "gcdd.exe")

	if _, err := os.Stat(daemonPath); err == nil {
		return daemonPath
	}

	if path := os.Getenv("GCD_DAEMON_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func getSocketPath() (string, error) {
	socketPath := os.Getenv("GCD_SOCKET_PATH")
	if socketPath != "" {
		return socketPath, nil
	}

	configPath := os.Getenv("GCD_CONFIG_PATH")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home dir: %w", err)
		}
		configPath = filepath.Join(homeDir, ".gcd", "config.yaml")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("reading config: %w", err)
	}

	var config struct {
		SocketPath string `yaml:"socket_path"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return "", fmt.Errorf("parsing config: %w", err)
	}

	if config.SocketPath == "" {
		return "", fmt.Errorf("socket_path not configured")
	}

	return config.SocketPath, nil
}

func waitForReady(timeout time.Duration) error {
	port := os.Getenv("GCD_TCP_PORT")
	if port == "" {
		port = DefaultTCPPort
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", "localhost:"+port)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for daemon ready")
}

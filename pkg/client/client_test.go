package client

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWithDefaults(t *testing.T) {
	origSocketPath := os.Getenv("GCD_SOCKET_PATH")
	origTCPPort := os.Getenv("GCD_TCP_PORT")
	defer func() {
		if origSocketPath != "" {
			os.Setenv("GCD_SOCKET_PATH", origSocketPath)
		} else {
			os.Unsetenv("GCD_SOCKET_PATH")
		}
		if origTCPPort != "" {
			os.Setenv("GCD_TCP_PORT", origTCPPort)
		} else {
			os.Unsetenv("GCD_TCP_PORT")
		}
	}()

	os.Unsetenv("GCD_SOCKET_PATH")
	os.Unsetenv("GCD_TCP_PORT")

	c := New()
	if c.socketPath != DefaultSocketPath {
		t.Errorf("Expected socket path %q, got %q", DefaultSocketPath, c.socketPath)
	}
	if c.tcpPort != DefaultTCPPort {
		t.Errorf("Expected TCP port %q, got %q", DefaultTCPPort, c.tcpPort)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, c.timeout)
	}
}

func TestNewWithOptions(t *testing.T) {
	c := New(
		WithSocketPath("/custom/path.sock"),
		WithTCPPort("9999"),
		WithTimeout(10*time.Second),
	)

	if c.socketPath != "/custom/path.sock" {
		t.Errorf("Expected socket path /custom/path.sock, got %q", c.socketPath)
	}
	if c.tcpPort != "9999" {
		t.Errorf("Expected TCP port 9999, got %q", c.tcpPort)
	}
	if c.timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", c.timeout)
	}
}

func TestGetSocketPath(t *testing.T) {
	orig := os.Getenv("GCD_SOCKET_PATH")
	defer func() {
		if orig != "" {
			os.Setenv("GCD_SOCKET_PATH", orig)
		} else {
			os.Unsetenv("GCD_SOCKET_PATH")
		}
	}()

	os.Unsetenv("GCD_SOCKET_PATH")
	if got := getSocketPath(); got != DefaultSocketPath {
		t.Errorf("Expected %q, got %q", DefaultSocketPath, got)
	}

	os.Setenv("GCD_SOCKET_PATH", "/env/socket.sock")
	if got := getSocketPath(); got != "/env/socket.sock" {
		t.Errorf("Expected /env/socket.sock, got %q", got)
	}
}

func TestGetTCPPort(t *testing.T) {
	orig := os.Getenv("GCD_TCP_PORT")
	defer func() {
		if orig != "" {
			os.Setenv("GCD_TCP_PORT", orig)
		} else {
			os.Unsetenv("GCD_TCP_PORT")
		}
	}()

	os.Unsetenv("GCD_TCP_PORT")
	if got := getTCPPort(); got != DefaultTCPPort {
		t.Errorf("Expected %q, got %q", DefaultTCPPort, got)
	}

	os.Setenv("GCD_TCP_PORT", "7777")
	if got := getTCPPort(); got != "7777" {
		t.Errorf("Expected 7777, got %q", got)
	}
}

func TestUseTCP(t *testing.T) {
	origSocketPath := os.Getenv("GCD_SOCKET_PATH")
	defer func() {
		if origSocketPath != "" {
			os.Setenv("GCD_SOCKET_PATH", origSocketPath)
		} else {
			os.Unsetenv("GCD_SOCKET_PATH")
		}
	}()

	if isWindows() {
		t.Skip("always TCP on windows")
	}

	tests := []struct {
		name     string
		envValue string
		expected bool
	}{
		{"absolute path", "/tmp/gcd.sock", false},
		{"relative path", "gcd.sock", true},
		{"windows-style", "C:\\temp\\gcd.sock", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("GCD_SOCKET_PATH", tt.envValue)
			if got := useTCP(); got != tt.expected {
				t.Errorf("useTCP() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConnectNoDaemon(t *testing.T) {
	c := New(WithSocketPath(filepath.Join(t.TempDir(), "missing.sock")))
	_, err := c.connect()
	if err == nil {
		t.Error("Expected connection error when no daemon is listening")
	}
}

// fakeDaemon serves one JSON command per connection from canned results.
func fakeDaemon(t *testing.T, results map[string]interface{}) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Failed to listen on unix socket: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				var cmd map[string]interface{}
				if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
					return
				}
				cmdType, _ := cmd["type"].(string)
				resp := map[string]interface{}{"id": cmd["id"]}
				if result, ok := results[cmdType]; ok {
					resp["result"] = result
				} else {
					resp["error"] = "unknown command: " + cmdType
				}
				json.NewEncoder(conn).Encode(resp)
			}(conn)
		}
	}()

	return socketPath
}

func TestGetStatusFromDaemon(t *testing.T) {
	socketPath := fakeDaemon(t, map[string]interface{}{
		"status": map[string]interface{}{
			"version":       "1.2.3",
			"cache_entries": 7,
			"cache_bytes":   2048,
			"cache_hits":    10,
			"cache_misses":  3,
		},
	})

	c := New(WithSocketPath(socketPath))
	status, err := c.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus() failed: %v", err)
	}

	if !status.Running || !status.Ready {
		t.Error("Expected running and ready status")
	}
	if status.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", status.Version)
	}
	if status.CacheEntries != 7 {
		t.Errorf("CacheEntries = %d, want 7", status.CacheEntries)
	}
	if status.CacheBytes != 2048 {
		t.Errorf("CacheBytes = %d, want 2048", status.CacheBytes)
	}
	if status.CacheHits != 10 || status.CacheMisses != 3 {
		t.Errorf("Cache hits/misses = %d/%d, want 10/3", status.CacheHits, status.CacheMisses)
	}
}

func TestControlsFromDaemon(t *testing.T) {
	socketPath := fakeDaemon(t, map[string]interface{}{
		"controls": map[string]interface{}{
			"function_name": "process",
			"block_a":       "block_1",
			"block_b":       "block_2",
			"predicate":     "controls",
			"holds":         true,
		},
	})

	c := New(WithSocketPath(socketPath))
	verdict, err := c.Controls(context.Background(), QueryParams{
		File:     "main.go",
		Function: "process",
		BlockA:   "block_1",
		BlockB:   "block_2",
	})
	if err != nil {
		t.Fatalf("Controls() failed: %v", err)
	}

	if !verdict.Holds {
		t.Error("Expected verdict to hold")
	}
	if verdict.Predicate != "controls" {
		t.Errorf("Predicate = %q, want controls", verdict.Predicate)
	}
	if verdict.BlockA != "block_1" || verdict.BlockB != "block_2" {
		t.Errorf("Blocks = %q/%q, want block_1/block_2", verdict.BlockA, verdict.BlockB)
	}
}

func TestCDGFromDaemon(t *testing.T) {
	socketPath := fakeDaemon(t, map[string]interface{}{
		"cdg": map[string]interface{}{
			"function_name": "process",
			"root":          0,
			"nodes": []map[string]interface{}{
				{"id": 0, "region": true},
				{"id": 1, "block": "block_0", "region": false},
			},
			"edges": []map[string]interface{}{
				{"from": 0, "to": 1, "kind": "other"},
			},
		},
	})

	c := New(WithSocketPath(socketPath))
	info, err := c.CDG(context.Background(), CDGParams{File: "main.go", Function: "process"})
	if err != nil {
		t.Fatalf("CDG() failed: %v", err)
	}

	if info.FunctionName != "process" {
		t.Errorf("FunctionName = %q, want process", info.FunctionName)
	}
	if len(info.Nodes) != 2 || len(info.Edges) != 1 {
		t.Errorf("Got %d nodes, %d edges; want 2, 1", len(info.Nodes), len(info.Edges))
	}
	if !info.Nodes[0].Region {
		t.Error("Expected root node to be a region")
	}
}

func TestDaemonErrorResponse(t *testing.T) {
	socketPath := fakeDaemon(t, map[string]interface{}{})

	c := New(WithSocketPath(socketPath))
	_, err := c.CFG(context.Background(), GraphParams{File: "main.go", Function: "missing"})
	if err == nil {
		t.Error("Expected error from daemon error response")
	}
}

func TestWarmFromDaemon(t *testing.T) {
	socketPath := fakeDaemon(t, map[string]interface{}{
		"warm": map[string]interface{}{
			"root":          ".",
			"files_scanned": 3,
			"files_skipped": 1,
			"graphs_built":  5,
			"failures":      0,
			"duration_ms":   42,
		},
	})

	c := New(WithSocketPath(socketPath))
	report, err := c.Warm(context.Background(), WarmParams{Paths: []string{"."}})
	if err != nil {
		t.Fatalf("Warm() failed: %v", err)
	}

	if report.FilesScanned != 3 || report.GraphsBuilt != 5 {
		t.Errorf("Report = %+v, want 3 scanned, 5 built", report)
	}
}

func TestInvalidateFromDaemon(t *testing.T) {
	socketPath := fakeDaemon(t, map[string]interface{}{
		"invalidate": map[string]interface{}{
			"invalidated": 4,
		},
	})

	c := New(WithSocketPath(socketPath))
	result, err := c.Invalidate(context.Background(), InvalidateParams{Files: []string{"main.go"}})
	if err != nil {
		t.Fatalf("Invalidate() failed: %v", err)
	}

	if result.Invalidated != 4 {
		t.Errorf("Invalidated = %d, want 4", result.Invalidated)
	}
}

func TestIsConnected(t *testing.T) {
	c := New()
	if c.IsConnected() {
		t.Error("New client should not be connected")
	}

	socketPath := fakeDaemon(t, map[string]interface{}{
		"status": map[string]interface{}{"version": "1.0.0"},
	})
	c = New(WithSocketPath(socketPath))
	if _, err := c.GetStatus(context.Background()); err != nil {
		t.Fatalf("GetStatus() failed: %v", err)
	}
	if !c.IsConnected() {
		t.Error("Client should report connected after a successful command")
	}
}

func TestGenerateID(t *testing.T) {
	id1 := generateID()
	time.Sleep(time.Millisecond)
	id2 := generateID()
	if id1 == id2 {
		t.Error("Expected distinct command IDs")
	}
}

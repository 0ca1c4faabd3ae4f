// Package client provides a client for connecting to the gcd daemon.
// It supports automatic detection of running daemons and graceful fallback
// to direct execution when the daemon is unavailable.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/l3aro/go-control-deps/pkg/cdg"
	"github.com/l3aro/go-control-deps/pkg/cfg"
	"github.com/l3aro/go-control-deps/pkg/postdom"
	"github.com/l3aro/go-control-deps/pkg/types"
)

const (
	// DefaultSocketPath is the default Unix socket path
	DefaultSocketPath = "/tmp/gcd.sock"
	// DefaultTCPPort is the default TCP port for Windows
	DefaultTCPPort = "9847"
	// DefaultTimeout is the default connection timeout
	DefaultTimeout = 5 * time.Second
)

// Client is a daemon client
type Client struct {
	socketPath string
	tcpPort    string
	timeout    time.Duration
	mu         sync.RWMutex
	connected  bool
}

// Option is a client option
type Option func(*Client)

// WithSocketPath sets the socket path
func WithSocketPath(path string) Option {
	return func(c *Client) {
		c.socketPath = path
	}
}

// WithTCPPort sets the TCP port (for Windows)
func WithTCPPort(port string) Option {
	return func(c *Client) {
		c.tcpPort = port
	}
}

// WithTimeout sets the connection timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a new daemon client
func New(opts ...Option) *Client {
	c := &Client{
		socketPath: getSocketPath(),
		tcpPort:    getTCPPort(),
		timeout:    DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// getSocketPath gets the socket path from environment or default
func getSocketPath() string {
	if path := os.Getenv("GCD_SOCKET_PATH"); path != "" {
		return path
	}
	return DefaultSocketPath
}

// getTCPPort gets the TCP port from environment or default
func getTCPPort() string {
	if port := os.Getenv("GCD_TCP_PORT"); port != "" {
		return port
	}
	return DefaultTCPPort
}

// isWindows returns true if running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// useTCP returns true if we should use TCP instead of Unix sockets
func useTCP() bool {
	if isWindows() {
		return true
	}
	// Check if socket path is not an absolute path (Windows-style)
	socketPath := getSocketPath()
	return !strings.HasPrefix(socketPath, "/")
}

// connect establishes a connection to the daemon
func (c *Client) connect() (net.Conn, error) {
	var conn net.Conn
	var err error

	if useTCP() {
		conn, err = net.Dial("tcp", "localhost:"+c.tcpPort)
	} else {
		conn, err = net.Dial("unix", c.socketPath)
	}

	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}

	conn.SetDeadline(time.Now().Add(c.timeout))
	return conn, nil
}

// sendCommand sends a command to the daemon and returns the response
func (c *Client) sendCommand(ctx context.Context, cmdType string, params interface{}) (map[string]interface{}, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Set deadline from context if available
	if ctx != nil {
		deadline, ok := ctx.Deadline()
		if ok {
			conn.SetDeadline(deadline)
		}
	} else {
		conn.SetDeadline(time.Now().Add(c.timeout))
	}

	// Create command
	cmd := map[string]interface{}{
		"type": cmdType,
		"id":   generateID(),
	}
	if params != nil {
		cmd["params"] = params
	}

	// Send command
	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(cmd); err != nil {
		return nil, fmt.Errorf("sending command: %w", err)
	}

	// Read response
	decoder := json.NewDecoder(conn)
	var resp map[string]interface{}
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	// Check for errors
	if errMsg, ok := resp["error"].(string); ok && errMsg != "" {
		return nil, fmt.Errorf("daemon error: %s", errMsg)
	}

	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid response format")
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return result, nil
}

// decodeResult re-encodes a generic result map into a typed structure.
func decodeResult(result map[string]interface{}, v interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// generateID generates a unique command ID
func generateID() string {
	return fmt.Sprintf("cmd-%d", time.Now().UnixNano())
}

// DaemonStatus represents daemon status information
type DaemonStatus struct {
	Running      bool   `json:"running"`
	Ready        bool   `json:"ready"`
	PID          int    `json:"pid,omitempty"`
	Version      string `json:"version,omitempty"`
	CacheEntries int    `json:"cache_entries,omitempty"`
	CacheBytes   int64  `json:"cache_bytes,omitempty"`
	CacheHits    uint64 `json:"cache_hits,omitempty"`
	CacheMisses  uint64 `json:"cache_misses,omitempty"`
}

// GetStatus gets the daemon status
func (c *Client) GetStatus(ctx context.Context) (*DaemonStatus, error) {
	result, err := c.sendCommand(ctx, "status", nil)
	if err != nil {
		return nil, err
	}

	status := &DaemonStatus{
		Running: true,
		Ready:   true,
	}

	if v, ok := result["version"].(string); ok {
		status.Version = v
	}
	if v, ok := result["cache_entries"].(float64); ok {
		status.CacheEntries = int(v)
	}
	if v, ok := result["cache_bytes"].(float64); ok {
		status.CacheBytes = int64(v)
	}
	if v, ok := result["cache_hits"].(float64); ok {
		status.CacheHits = uint64(v)
	}
	if v, ok := result["cache_misses"].(float64); ok {
		status.CacheMisses = uint64(v)
	}

	return status, nil
}

// GraphParams identifies one function inside one source file.
type GraphParams struct {
	File     string `json:"file"`
	Function string `json:"function"`
}

// CDGParams defines parameters for a control dependence graph request.
type CDGParams struct {
	File     string `json:"file"`
	Function string `json:"function"`
	// Raw skips region compaction.
	Raw bool `json:"raw,omitempty"`
}

// QueryParams defines parameters for controls/influences queries.
type QueryParams struct {
	File     string `json:"file"`
	Function string `json:"function"`
	BlockA   string `json:"block_a"`
	BlockB   string `json:"block_b"`
}

// WarmParams defines parameters for a warm operation.
type WarmParams struct {
	Paths []string `json:"paths"`
	// Languages restricts warming to the given languages; empty means
	// every enabled language.
	Languages []string `json:"languages,omitempty"`
}

// InvalidateParams defines parameters for cache invalidation.
type InvalidateParams struct {
	Files []string `json:"files"`
}

// InvalidateResult reports how many cache entries were dropped.
type InvalidateResult struct {
	Invalidated int `json:"invalidated"`
}

// CFG requests the control flow graph of a function
func (c *Client) CFG(ctx context.Context, params GraphParams) (*cfg.CFGInfo, error) {
	result, err := c.sendCommand(ctx, "cfg", params)
	if err != nil {
		return nil, err
	}

	info := &cfg.CFGInfo{}
	if err := decodeResult(result, info); err != nil {
		return nil, err
	}
	return info, nil
}

// PostDom requests the post-dominator tree of a function
func (c *Client) PostDom(ctx context.Context, params GraphParams) (*postdom.TreeInfo, error) {
	result, err := c.sendCommand(ctx, "postdom", params)
	if err != nil {
		return nil, err
	}

	info := &postdom.TreeInfo{}
	if err := decodeResult(result, info); err != nil {
		return nil, err
	}
	return info, nil
}

// CDG requests the control dependence graph of a function
func (c *Client) CDG(ctx context.Context, params CDGParams) (*cdg.CDGInfo, error) {
	result, err := c.sendCommand(ctx, "cdg", params)
	if err != nil {
		return nil, err
	}

	info := &cdg.CDGInfo{}
	if err := decodeResult(result, info); err != nil {
		return nil, err
	}
	return info, nil
}

// Controls asks whether one block controls another
func (c *Client) Controls(ctx context.Context, params QueryParams) (*types.QueryVerdict, error) {
	result, err := c.sendCommand(ctx, "controls", params)
	if err != nil {
		return nil, err
	}

	verdict := &types.QueryVerdict{}
	if err := decodeResult(result, verdict); err != nil {
		return nil, err
	}
	return verdict, nil
}

// Influences asks whether two blocks are control-related in either direction
func (c *Client) Influences(ctx context.Context, params QueryParams) (*types.QueryVerdict, error) {
	result, err := c.sendCommand(ctx, "influences", params)
	if err != nil {
		return nil, err
	}

	verdict := &types.QueryVerdict{}
	if err := decodeResult(result, verdict); err != nil {
		return nil, err
	}
	return verdict, nil
}

// Warm builds and caches graphs for every function under the given paths
func (c *Client) Warm(ctx context.Context, params WarmParams) (*types.WarmReport, error) {
	result, err := c.sendCommand(ctx, "warm", params)
	if err != nil {
		return nil, err
	}

	report := &types.WarmReport{}
	if err := decodeResult(result, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Invalidate drops cached graphs for the given files
func (c *Client) Invalidate(ctx context.Context, params InvalidateParams) (*InvalidateResult, error) {
	result, err := c.sendCommand(ctx, "invalidate", params)
	if err != nil {
		return nil, err
	}

	ir := &InvalidateResult{}
	if err := decodeResult(result, ir); err != nil {
		return nil, err
	}
	return ir, nil
}

// IsConnected returns whether the client is connected to the daemon
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

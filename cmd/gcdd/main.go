// Package main implements the go-control-deps daemon (gcdd).
// It provides a Unix domain socket server (with TCP fallback on Windows)
// that serves graph extraction and control dependence queries from a warm
// in-memory cache.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/l3aro/go-control-deps/internal/config"
	"github.com/l3aro/go-control-deps/internal/log"
	"github.com/l3aro/go-control-deps/pkg/client"
)

var version = "dev"
var buildTime = ""

const DefaultSocketPath = "/tmp/gcd.sock"
const DefaultTCPPort = "9847"

func isWindows() bool {
	return runtime.GOOS == "windows"
}

type Daemon struct {
	config *config.Config
	exec   *client.Executor
	logger log.Logger
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDaemon(cfg *config.Config, logger log.Logger) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		config: cfg,
		exec:   client.NewExecutorWithConfig(cfg),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (d *Daemon) StartSocketServer() error {
	var listener net.Listener
	var err error

	socketPath := d.config.SocketPath
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	if isWindows() {
		port := os.Getenv("GCD_TCP_PORT")
		if port == "" {
			port = DefaultTCPPort
		}
		listener, err = net.Listen("tcp", "localhost:"+port)
		if err != nil {
			return fmt.Errorf("listening on tcp: %w", err)
		}
		d.logger.Info("started TCP server", "addr", "localhost:"+port)
	} else {
		if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing socket: %w", err)
		}

		listener, err = net.Listen("unix", socketPath)
		if err != nil {
			return fmt.Errorf("listening on socket: %w", err)
		}

		if err := os.Chmod(socketPath, 0777); err != nil {
			return fmt.Errorf("setting socket permissions: %w", err)
		}

		d.logger.Info("started unix socket server", "path", socketPath)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			d.logger.Info("shutting down server")
			d.Stop()
		case <-d.ctx.Done():
		}
		listener.Close()
	}()

	var tempDelay time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if tempDelay == 0 {
				tempDelay = time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			select {
			case <-time.After(tempDelay):
				if d.ctx.Err() != nil {
					return nil
				}
				continue
			case <-d.ctx.Done():
				return nil
			}
		}
		tempDelay = 0

		go d.handleConnection(conn)
	}
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		var cmd Command
		if err := decoder.Decode(&cmd); err != nil {
			if err == io.EOF {
				return
			}
			encoder.Encode(Response{
				Error: fmt.Sprintf("decode error: %v", err),
			})
			continue
		}

		resp := d.handleCommand(cmd)
		if err := encoder.Encode(resp); err != nil {
			d.logger.Error("encode error", "err", err)
			return
		}

		conn.SetReadDeadline(time.Time{})
	}
}

type Command struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     string          `json:"id,omitempty"`
}

type Response struct {
	ID     string          `json:"id,omitempty"`
	Type   string          `json:"type,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (d *Daemon) handleCommand(cmd Command) Response {
	d.logger.Debug("handling command", "type", cmd.Type, "id", cmd.ID)

	switch cmd.Type {
	case "status":
		return d.handleStatus(cmd)
	case "cfg":
		return d.handleCFG(cmd)
	case "postdom":
		return d.handlePostDom(cmd)
	case "cdg":
		return d.handleCDG(cmd)
	case "controls":
		return d.handleControls(cmd)
	case "influences":
		return d.handleInfluences(cmd)
	case "warm":
		return d.handleWarm(cmd)
	case "invalidate":
		return d.handleInvalidate(cmd)
	case "stop":
		return d.handleStop(cmd)
	default:
		return Response{
			ID:    cmd.ID,
			Error: fmt.Sprintf("unknown command: %s", cmd.Type),
		}
	}
}

// resultResponse marshals a handler result into a Response.
func resultResponse(cmd Command, result interface{}) Response {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("marshal error: %v", err)}
	}
	return Response{
		ID:     cmd.ID,
		Type:   cmd.Type,
		Result: resultJSON,
	}
}

func (d *Daemon) handleStatus(cmd Command) Response {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := d.exec.CacheStats()

	result := map[string]interface{}{
		"version":       version,
		"status":        "running",
		"pid":           os.Getpid(),
		"cache_entries": stats.Length,
		"cache_bytes":   stats.CurrentBytes,
		"cache_hits":    stats.HitCount,
		"cache_misses":  stats.MissCount,
	}

	return resultResponse(cmd, result)
}

func (d *Daemon) handleCFG(cmd Command) Response {
	var params client.GraphParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("invalid params: %v", err)}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	info, err := d.exec.CFG(d.ctx, params)
	if err != nil {
		return Response{ID: cmd.ID, Error: err.Error()}
	}
	return resultResponse(cmd, info)
}

func (d *Daemon) handlePostDom(cmd Command) Response {
	var params client.GraphParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("invalid params: %v", err)}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	tree, err := d.exec.PostDom(d.ctx, params)
	if err != nil {
		return Response{ID: cmd.ID, Error: err.Error()}
	}
	return resultResponse(cmd, tree)
}

func (d *Daemon) handleCDG(cmd Command) Response {
	var params client.CDGParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("invalid params: %v", err)}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	info, err := d.exec.CDG(d.ctx, params)
	if err != nil {
		return Response{ID: cmd.ID, Error: err.Error()}
	}
	return resultResponse(cmd, info)
}

func (d *Daemon) handleControls(cmd Command) Response {
	var params client.QueryParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("invalid params: %v", err)}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	verdict, err := d.exec.Controls(d.ctx, params)
	if err != nil {
		return Response{ID: cmd.ID, Error: err.Error()}
	}
	return resultResponse(cmd, verdict)
}

func (d *Daemon) handleInfluences(cmd Command) Response {
	var params client.QueryParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("invalid params: %v", err)}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	verdict, err := d.exec.Influences(d.ctx, params)
	if err != nil {
		return Response{ID: cmd.ID, Error: err.Error()}
	}
	return resultResponse(cmd, verdict)
}

func (d *Daemon) handleWarm(cmd Command) Response {
	var params client.WarmParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("invalid params: %v", err)}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	report, err := d.exec.Warm(d.ctx, params)
	if err != nil {
		return Response{ID: cmd.ID, Error: err.Error()}
	}
	return resultResponse(cmd, report)
}

func (d *Daemon) handleInvalidate(cmd Command) Response {
	var params client.InvalidateParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return Response{ID: cmd.ID, Error: fmt.Sprintf("invalid params: %v", err)}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.exec.Invalidate(d.ctx, params)
	if err != nil {
		return Response{ID: cmd.ID, Error: err.Error()}
	}
	return resultResponse(cmd, result)
}

func (d *Daemon) handleStop(cmd Command) Response {
	d.Stop()

	result := map[string]interface{}{
		"status": "stopped",
	}
	return resultResponse(cmd, result)
}

func (d *Daemon) Stop() {
	d.cancel()
}

func main() {
	socketPath := ""
	configPath := ""
	verbose := false

	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-socket", "--socket":
			if i+1 < len(os.Args) {
				socketPath = os.Args[i+1]
				i++
			}
		case "-config", "--config":
			if i+1 < len(os.Args) {
				configPath = os.Args[i+1]
				i++
			}
		case "-v", "--verbose", "-verbose":
			verbose = true
		case "-version", "--version":
			fmt.Printf("gcdd version %s\n", version)
			os.Exit(0)
		case "-h", "--help", "-help":
			fmt.Println("Usage: gcdd [options]")
			fmt.Println("Options:")
			fmt.Println("  -socket PATH   Unix socket path (default: /tmp/gcd.sock)")
			fmt.Println("  -config PATH   Config file path")
			fmt.Println("  -v, -verbose  Verbose logging")
			fmt.Println("  -h, -help     Show this help")
			os.Exit(0)
		}
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	level := log.InfoLevel
	if verbose || cfg.Verbose {
		level = log.DebugLevel
	}
	logger := log.New(log.LoggerConfig{Level: level, Stderr: os.Stderr})

	daemon := NewDaemon(cfg, logger)

	logger.Info("starting gcdd", "version", version)

	if err := daemon.StartSocketServer(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}

	logger.Info("gcdd stopped")
}

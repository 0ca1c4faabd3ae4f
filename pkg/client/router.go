// Package client provides command routing with daemon support and fallback.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/l3aro/go-control-deps/pkg/cdg"
	"github.com/l3aro/go-control-deps/pkg/cfg"
	"github.com/l3aro/go-control-deps/pkg/postdom"
	"github.com/l3aro/go-control-deps/pkg/types"
)

const defaultDaemonCacheTTL = 5 * time.Second

// Router routes commands to the daemon or executes them in-process.
type Router struct {
	client     *Client
	useDaemon  bool
	autoDetect bool

	mu           sync.Mutex
	executor     *Executor
	cachedResult *bool
	cacheTime    time.Time
	cacheTTL     time.Duration
}

// RouterOption is a router option
type RouterOption func(*Router)

// WithDaemon forces using the daemon
func WithDaemon() RouterOption {
	return func(r *Router) {
		r.useDaemon = true
		r.autoDetect = false
	}
}

// WithoutDaemon forces direct execution (no daemon)
func WithoutDaemon() RouterOption {
	return func(r *Router) {
		r.useDaemon = false
		r.autoDetect = false
	}
}

// WithAutoDetect enables automatic daemon detection
func WithAutoDetect() RouterOption {
	return func(r *Router) {
		r.autoDetect = true
	}
}

// NewRouter creates a new command router
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		client:     New(),
		useDaemon:  false,
		autoDetect: true, // Default to auto-detect
		cacheTTL:   defaultDaemonCacheTTL,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ShouldUseDaemon returns true if we should use the daemon
func (r *Router) ShouldUseDaemon() bool {
	if !r.autoDetect {
		return r.useDaemon
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check if cache is valid
	if r.cachedResult != nil && time.Since(r.cacheTime) < r.cacheTTL {
		return *r.cachedResult
	}

	// Detect and cache result
	result := IsRunning()
	r.cachedResult = &result
	r.cacheTime = time.Now()
	return result
}

// fallback returns the in-process executor, creating it on first use.
func (r *Router) fallback() (*Executor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.executor == nil {
		exec, err := NewExecutor()
		if err != nil {
			return nil, fmt.Errorf("initializing fallback executor: %w", err)
		}
		r.executor = exec
	}
	return r.executor, nil
}

// CFG extracts the control flow graph of a function
func (r *Router) CFG(ctx context.Context, params GraphParams) (*cfg.CFGInfo, error) {
	if r.ShouldUseDaemon() {
		return r.client.CFG(ctx, params)
	}
	exec, err := r.fallback()
	if err != nil {
		return nil, err
	}
	return exec.CFG(ctx, params)
}

// PostDom extracts the post-dominator tree of a function
func (r *Router) PostDom(ctx context.Context, params GraphParams) (*postdom.TreeInfo, error) {
	if r.ShouldUseDaemon() {
		return r.client.PostDom(ctx, params)
	}
	exec, err := r.fallback()
	if err != nil {
		return nil, err
	}
	return exec.PostDom(ctx, params)
}

// CDG extracts the control dependence graph of a function
func (r *Router) CDG(ctx context.Context, params CDGParams) (*cdg.CDGInfo, error) {
	if r.ShouldUseDaemon() {
		return r.client.CDG(ctx, params)
	}
	exec, err := r.fallback()
	if err != nil {
		return nil, err
	}
	return exec.CDG(ctx, params)
}

// Controls asks whether one block controls another
func (r *Router) Controls(ctx context.Context, params QueryParams) (*types.QueryVerdict, error) {
	if r.ShouldUseDaemon() {
		return r.client.Controls(ctx, params)
	}
	exec, err := r.fallback()
	if err != nil {
		return nil, err
	}
	return exec.Controls(ctx, params)
}

// Influences asks whether two blocks are control-related in either direction
func (r *Router) Influences(ctx context.Context, params QueryParams) (*types.QueryVerdict, error) {
	if r.ShouldUseDaemon() {
		return r.client.Influences(ctx, params)
	}
	exec, err := r.fallback()
	if err != nil {
		return nil, err
	}
	return exec.Influences(ctx, params)
}

// Warm builds and caches graphs for every function under the given paths
func (r *Router) Warm(ctx context.Context, params WarmParams) (*types.WarmReport, error) {
	if r.ShouldUseDaemon() {
		return r.client.Warm(ctx, params)
	}
	exec, err := r.fallback()
	if err != nil {
		return nil, err
	}
	return exec.Warm(ctx, params)
}

// Invalidate drops cached graphs for the given files
func (r *Router) Invalidate(ctx context.Context, params InvalidateParams) (*InvalidateResult, error) {
	if r.ShouldUseDaemon() {
		return r.client.Invalidate(ctx, params)
	}
	exec, err := r.fallback()
	if err != nil {
		return nil, err
	}
	return exec.Invalidate(ctx, params)
}

// GetStatus gets daemon status
func (r *Router) GetStatus(ctx context.Context) (*DaemonStatus, error) {
	if r.ShouldUseDaemon() {
		return r.client.GetStatus(ctx)
	}
	return nil, ErrDaemonNotAvailable
}

// IsDaemonAvailable checks if daemon is running and available
func (r *Router) IsDaemonAvailable() bool {
	return IsRunning()
}

// GetDaemonInfo gets detailed daemon information
func (r *Router) GetDaemonInfo() (*DaemonInfo, error) {
	return DetectDaemon(nil)
}

// Common errors
var (
	ErrDaemonNotAvailable = fmt.Errorf("daemon not available")
)

// Package client provides fallback execution when daemon is unavailable.
package client

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/l3aro/go-control-deps/internal/config"
	"github.com/l3aro/go-control-deps/internal/scanner"
	"github.com/l3aro/go-control-deps/pkg/cache"
	"github.com/l3aro/go-control-deps/pkg/cdg"
	"github.com/l3aro/go-control-deps/pkg/cfg"
	"github.com/l3aro/go-control-deps/pkg/dirty"
	"github.com/l3aro/go-control-deps/pkg/extractor"
	"github.com/l3aro/go-control-deps/pkg/postdom"
	"github.com/l3aro/go-control-deps/pkg/types"
)

// Executor performs direct execution when daemon is unavailable
type Executor struct {
	cfg     *config.Config
	scanner *scanner.Scanner
	cache   *cache.GraphCache
	tracker *dirty.Tracker
}

// NewExecutor creates a new fallback executor
func NewExecutor() (*Executor, error) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return NewExecutorWithConfig(cfg), nil
}

// NewExecutorWithConfig creates an executor backed by the given configuration.
// The daemon uses this to serve with a config loaded from an explicit path.
func NewExecutorWithConfig(cfg *config.Config) *Executor {
	graphCache := cache.NewGraphCache(cache.GraphCacheOptions{
		MaxEntries: cfg.CacheMaxEntries,
		MaxBytes:   cfg.CacheMaxBytes,
		Path:       filepath.Join(cfg.CacheDir, "graphs.bin"),
	})
	// A missing or stale snapshot just means a cold cache.
	graphCache.Load()

	tracker, err := dirty.NewFromCache()
	if err != nil {
		tracker = dirty.New(dirty.WithCacheDir(cfg.CacheDir))
	}

	return &Executor{
		cfg:     cfg,
		scanner: scanner.New(scanner.DefaultOptions()),
		cache:   graphCache,
		tracker: tracker,
	}
}

// Config returns the effective configuration.
func (e *Executor) Config() *config.Config {
	return e.cfg
}

// CacheStats returns graph cache statistics.
func (e *Executor) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// CFG extracts the control flow graph of a function
func (e *Executor) CFG(ctx context.Context, params GraphParams) (*cfg.CFGInfo, error) {
	if params.File == "" || params.Function == "" {
		return nil, fmt.Errorf("file and function are required")
	}

	info, err := cfg.ExtractCFG(params.File, params.Function)
	if err != nil {
		return nil, err
	}
	if err := e.checkBlockLimit(info); err != nil {
		return nil, err
	}
	return info, nil
}

// PostDom extracts the post-dominator tree of a function
func (e *Executor) PostDom(ctx context.Context, params GraphParams) (*postdom.TreeInfo, error) {
	info, err := e.CFG(ctx, params)
	if err != nil {
		return nil, err
	}

	tree, err := postdom.Build(info)
	if err != nil {
		return nil, fmt.Errorf("building post-dominator tree: %w", err)
	}
	return tree.Export(), nil
}

// CDG extracts the control dependence graph of a function, consulting the
// graph cache for compacted graphs. Raw graphs are always rebuilt.
func (e *Executor) CDG(ctx context.Context, params CDGParams) (*cdg.CDGInfo, error) {
	if params.File == "" || params.Function == "" {
		return nil, fmt.Errorf("file and function are required")
	}

	if params.Raw {
		graph, err := e.buildGraph(params.File, params.Function, cdg.Options{SkipRegions: true})
		if err != nil {
			return nil, err
		}
		return graph.Export(), nil
	}

	key, err := e.cacheKey(params.File, params.Function)
	if err == nil {
		if info, ok := e.cache.Get(key); ok {
			return info, nil
		}
	}

	graph, err := e.buildGraph(params.File, params.Function, cdg.Options{})
	if err != nil {
		return nil, err
	}

	info := graph.Export()
	if key != "" {
		e.cache.Put(key, info)
		e.cache.Save()
	}
	return info, nil
}

// Controls answers whether block A controls block B
func (e *Executor) Controls(ctx context.Context, params QueryParams) (*types.QueryVerdict, error) {
	graph, err := e.queryGraph(ctx, params)
	if err != nil {
		return nil, err
	}

	return &types.QueryVerdict{
		FunctionName: params.Function,
		BlockA:       params.BlockA,
		BlockB:       params.BlockB,
		Predicate:    "controls",
		Holds:        graph.Controls(params.BlockA, params.BlockB),
	}, nil
}

// Influences answers whether blocks A and B are control-related in either direction
func (e *Executor) Influences(ctx context.Context, params QueryParams) (*types.QueryVerdict, error) {
	graph, err := e.queryGraph(ctx, params)
	if err != nil {
		return nil, err
	}

	return &types.QueryVerdict{
		FunctionName: params.Function,
		BlockA:       params.BlockA,
		BlockB:       params.BlockB,
		Predicate:    "influences",
		Holds:        graph.Influences(params.BlockA, params.BlockB),
	}, nil
}

// Warm builds and caches graphs for every function under the given paths
func (e *Executor) Warm(ctx context.Context, params WarmParams) (*types.WarmReport, error) {
	if len(params.Paths) == 0 {
		return nil, fmt.Errorf("paths are required")
	}

	started := time.Now()
	report := &types.WarmReport{Root: params.Paths[0]}

	for _, path := range params.Paths {
		files, err := e.scanner.Scan(path)
		if err != nil {
			report.Failures++
			continue
		}

		for _, file := range files {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			if !extractor.IsSupported(file.FullPath) {
				continue
			}
			lang := extractor.LanguageFor(file.FullPath)
			if !e.cfg.LanguageEnabled(lang) {
				continue
			}
			if len(params.Languages) > 0 && !containsLanguage(params.Languages, lang) {
				continue
			}

			fileReport := e.warmFile(file.FullPath)
			report.FilesScanned++
			if fileReport.Skipped {
				report.FilesSkipped++
			}
			report.GraphsBuilt += fileReport.Cached
			report.Failures += len(fileReport.Errors)
			report.Files = append(report.Files, fileReport)
		}
	}

	if err := e.cache.Save(); err != nil {
		return nil, fmt.Errorf("saving cache: %w", err)
	}
	e.tracker.Save()

	report.DurationMilli = time.Since(started).Milliseconds()
	return report, nil
}

// warmFile builds graphs for every function of one file.
func (e *Executor) warmFile(path string) types.FileReport {
	report := types.FileReport{Path: path}

	changed, err := e.tracker.CheckAndMark(path)
	if err == nil && !changed {
		report.Skipped = true
		return report
	}

	refs, err := extractor.ListFunctions(path)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.Functions = len(refs)

	hash, err := cache.HashFile(path)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}

	for _, ref := range refs {
		graph, err := e.buildGraph(path, ref.Name, cdg.Options{})
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ref.QualifiedName(), err))
			continue
		}

		key := cache.GraphKey(path, ref.Name, hash)
		if err := e.cache.Put(key, graph.Export()); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ref.QualifiedName(), err))
			continue
		}
		report.Cached++
	}

	return report
}

// Invalidate drops cached graphs for the given files
func (e *Executor) Invalidate(ctx context.Context, params InvalidateParams) (*InvalidateResult, error) {
	if len(params.Files) == 0 {
		return nil, fmt.Errorf("files are required")
	}

	var invalidated int
	for _, file := range params.Files {
		invalidated += e.cache.InvalidateFile(file)
		e.tracker.MarkDirty(file)
	}

	if err := e.cache.Save(); err != nil {
		return nil, fmt.Errorf("saving cache: %w", err)
	}
	e.tracker.Save()

	return &InvalidateResult{Invalidated: invalidated}, nil
}

func containsLanguage(langs []string, lang string) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}

// queryGraph loads the cached compacted graph for a query, building it on miss.
func (e *Executor) queryGraph(ctx context.Context, params QueryParams) (*cdg.Graph, error) {
	info, err := e.CDG(ctx, CDGParams{File: params.File, Function: params.Function})
	if err != nil {
		return nil, err
	}
	return cdg.FromInfo(info)
}

// buildGraph runs the full extraction pipeline for one function.
func (e *Executor) buildGraph(file, function string, opts cdg.Options) (*cdg.Graph, error) {
	info, err := cfg.ExtractCFG(file, function)
	if err != nil {
		return nil, err
	}
	if err := e.checkBlockLimit(info); err != nil {
		return nil, err
	}

	tree, err := postdom.Build(info)
	if err != nil {
		return nil, fmt.Errorf("building post-dominator tree: %w", err)
	}
	return cdg.NewBuilder(info, tree, opts).Build()
}

// cacheKey derives the content-addressed cache key for a function.
func (e *Executor) cacheKey(file, function string) (string, error) {
	hash, err := cache.HashFile(file)
	if err != nil {
		return "", err
	}
	return cache.GraphKey(file, function, hash), nil
}

// checkBlockLimit rejects functions whose CFG exceeds the configured size.
func (e *Executor) checkBlockLimit(info *cfg.CFGInfo) error {
	if e.cfg.MaxBlocks > 0 && len(info.Blocks) > e.cfg.MaxBlocks {
		return fmt.Errorf("function %s has %d blocks, exceeding the limit of %d",
			info.FunctionName, len(info.Blocks), e.cfg.MaxBlocks)
	}
	return nil
}

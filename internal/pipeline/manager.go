// Package pipeline runs content builds. A Manager takes the assets of a
// project, resolves their importer and processor through the component
// registry, and for each one opens a build context, imports, processes,
// writes the output container and records statistics and a build record.
//
// Assets build concurrently, each in its own task with a forked build
// context stack. Processors may build referenced assets through their build
// context; those nested builds run in the calling task.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/contentgrid/internal/buildcache"
	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/output"
	"github.com/vk/contentgrid/internal/project"
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/internal/stats"
	"github.com/vk/contentgrid/internal/xmlcodec"
	"golang.org/x/sync/errgroup"
)

// Options configures a Manager.
type Options struct {
	SourceRoot      string
	IntermediateDir string
	OutputDir       string
	Compression     output.Compression
	// WorkerCount limits concurrent top-level builds. Zero or less means one.
	WorkerCount int
	// Rebuild ignores build records and rebuilds every asset.
	Rebuild bool
}

// Summary counts the outcomes of a BuildAll run.
type Summary struct {
	Built   int
	Skipped int
	Failed  int
}

// Manager builds assets. It is safe for concurrent use.
type Manager struct {
	opts     Options
	registry *registry.Registry
	types    *xmlcodec.TypeTable
	stats    *stats.Collection
	records  *buildcache.Store

	mu     sync.Mutex
	done   map[string]string
	nested map[string][]string

	built   atomic.Int64
	skipped atomic.Int64
}

// NewManager returns a manager building with the components in reg and
// naming content types through types. Statistics of the previous run are
// read from the intermediate directory.
func NewManager(opts Options, reg *registry.Registry, types *xmlcodec.TypeTable) (*Manager, error) {
	switch {
	case opts.SourceRoot == "":
		return nil, content.Argumentf("pipeline requires a source root")
	case opts.IntermediateDir == "":
		return nil, content.Argumentf("pipeline requires an intermediate directory")
	case opts.OutputDir == "":
		return nil, content.Argumentf("pipeline requires an output directory")
	case reg == nil || types == nil:
		return nil, content.Argumentf("pipeline requires a registry and a type table")
	}
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}

	current := stats.NewCollection()
	current.SetPrevious(stats.Read(opts.IntermediateDir))
	return &Manager{
		opts:     opts,
		registry: reg,
		types:    types,
		stats:    current,
		records:  buildcache.NewStore(opts.IntermediateDir),
		done:     make(map[string]string),
		nested:   make(map[string][]string),
	}, nil
}

// Stats returns the statistics collected so far.
func (m *Manager) Stats() *stats.Collection {
	return m.stats
}

// BuildAll builds items concurrently and writes the statistics file. A
// failing asset does not stop the others; all failures are returned joined.
func (m *Manager) BuildAll(ctx context.Context, items []project.Item) (Summary, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting build.", "assets", len(items), "workers", m.opts.WorkerCount)
	start := time.Now()

	var (
		errMu sync.Mutex
		errs  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.WorkerCount)
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := m.Build(buildctx.Spawn(gctx), item); err != nil {
				logger.Error("Asset failed.", "asset", item.Source, "error", err)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", item.Source, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	cancelled := g.Wait()

	summary := Summary{
		Built:   int(m.built.Load()),
		Skipped: int(m.skipped.Load()),
		Failed:  len(errs),
	}
	if err := m.stats.Write(m.opts.IntermediateDir); err != nil {
		errs = append(errs, err)
	}
	if cancelled != nil {
		errs = append(errs, cancelled)
	}

	logger.Info("Build finished.",
		"built", summary.Built,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", time.Since(start).String(),
	)
	return summary, errors.Join(errs...)
}

// Build builds one project item and returns the path of its output.
func (m *Manager) Build(ctx context.Context, item project.Item) (string, error) {
	req := request{
		source:     item.SourceFile(m.opts.SourceRoot),
		key:        item.Source,
		importer:   item.Importer,
		processor:  item.Processor,
		parameters: item.Parameters,
	}
	return m.build(ctx, req)
}

// BuildAsset builds sourceFile on behalf of a running processor. It
// implements buildctx.AssetBuilder.
func (m *Manager) BuildAsset(ctx context.Context, sourceFile, processorName string) (string, error) {
	req, err := m.nestedRequest(sourceFile, processorName)
	if err != nil {
		return "", err
	}
	return m.build(ctx, req)
}

// BuildAndLoadAsset builds sourceFile and reads the processed content back
// from its output. It implements buildctx.AssetBuilder.
func (m *Manager) BuildAndLoadAsset(ctx context.Context, sourceFile, processorName string) (any, error) {
	out, err := m.BuildAsset(ctx, sourceFile, processorName)
	if err != nil {
		return nil, err
	}
	return m.Load(out, sourceFile)
}

// Load reads a built output file and decodes its content. sourceFile names
// the asset in errors.
func (m *Manager) Load(outputFile, sourceFile string) (any, error) {
	payload, err := output.ReadFile(outputFile)
	if err != nil {
		return nil, err
	}
	dec := xmlcodec.NewDecoder(m.types, content.NewIdentity(outputFile, ""))
	v, err := dec.DecodeAny(bytes.NewReader(payload))
	if err != nil {
		return nil, content.WrapInvalidContent(content.NewIdentity(sourceFile, ""), err, "loading built asset")
	}
	return v, nil
}

// Clean removes the outputs and build records of items.
func (m *Manager) Clean(ctx context.Context, items []project.Item) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, item := range items {
		out := m.outputPath(item.Source)
		if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, content.WrapPipeline(err, "removing %s", out))
		}
		if err := m.records.Remove(item.Source); err != nil {
			errs = append(errs, err)
		}
		logger.Debug("Cleaned asset.", "asset", item.Source)
	}
	return errors.Join(errs...)
}

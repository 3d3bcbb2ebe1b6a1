package buildctx

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vk/contentgrid/internal/buildlog"
	"github.com/vk/contentgrid/internal/content"
)

// AssetBuilder performs nested builds on behalf of a processor.
type AssetBuilder interface {
	// BuildAsset builds sourceFile with the named processor (empty selects the
	// importer's default) and returns the path of the written output.
	BuildAsset(ctx context.Context, sourceFile, processorName string) (string, error)
	// BuildAndLoadAsset builds sourceFile and returns the processed content.
	BuildAndLoadAsset(ctx context.Context, sourceFile, processorName string) (any, error)
}

// Context holds the ambient parameters of one in-progress build or import.
type Context struct {
	SourceIdentity  content.Identity
	IntermediateDir string
	OutputDir       string
	OutputFilename  string
	Logger          buildlog.Logger

	builder AssetBuilder

	mu   sync.Mutex
	deps map[string]struct{}
}

// AddDependency registers a file whose modification invalidates the cached
// build of the current asset.
func (c *Context) AddDependency(path string) error {
	if path == "" {
		return content.Argumentf("dependency path must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deps == nil {
		c.deps = make(map[string]struct{})
	}
	c.deps[filepath.Clean(path)] = struct{}{}
	return nil
}

// Dependencies returns the registered dependencies in sorted order.
func (c *Context) Dependencies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.deps))
	for d := range c.deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// BuildAsset builds a referenced asset and records it as a dependency.
func (c *Context) BuildAsset(ctx context.Context, ref content.Reference, processorName string) (string, error) {
	if err := c.checkReference(ref); err != nil {
		return "", err
	}
	if err := c.AddDependency(ref.ReferencedFilename()); err != nil {
		return "", err
	}
	return c.builder.BuildAsset(ctx, ref.ReferencedFilename(), processorName)
}

// BuildAndLoadAsset builds a referenced asset and returns its processed
// content, recording the source as a dependency.
func (c *Context) BuildAndLoadAsset(ctx context.Context, ref content.Reference, processorName string) (any, error) {
	if err := c.checkReference(ref); err != nil {
		return nil, err
	}
	if err := c.AddDependency(ref.ReferencedFilename()); err != nil {
		return nil, err
	}
	return c.builder.BuildAndLoadAsset(ctx, ref.ReferencedFilename(), processorName)
}

func (c *Context) checkReference(ref content.Reference) error {
	if ref == nil || ref.ReferencedFilename() == "" {
		return content.Argumentf("external reference must name a file")
	}
	if c.builder == nil {
		return content.Pipelinef("build context for %s cannot build nested assets", c.SourceIdentity)
	}
	return nil
}

// Option configures a Context at Begin.
type Option func(*Context)

// WithBuilder lets processors running in the scope issue nested builds.
func WithBuilder(b AssetBuilder) Option {
	return func(c *Context) { c.builder = b }
}

// WithOutputFilename records where the asset's output will be written.
func WithOutputFilename(name string) Option {
	return func(c *Context) { c.OutputFilename = name }
}

// Package project loads the HCL file that describes a content build: where
// sources live, where results go, and how individual assets are built.
package project

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Defaults applied when the pipeline block omits a setting.
const (
	DefaultSourceRoot      = "."
	DefaultIntermediateDir = "obj"
	DefaultOutputDir       = "bin"
	DefaultCompression     = "none"
)

// Project is a loaded project file. Directories are absolute or relative to
// the working directory; relative paths in the file are resolved against the
// file's own directory.
type Project struct {
	Path            string
	SourceRoot      string
	IntermediateDir string
	OutputDir       string
	Compression     string
	Items           []Item
}

// Item is one asset to build.
type Item struct {
	// Source is the asset path relative to the source root, slash separated.
	Source     string
	Importer   string
	Processor  string
	Parameters map[string]cty.Value
}

// SourceFile returns the path of the item's source under root.
func (it Item) SourceFile(root string) string {
	return filepath.Join(root, filepath.FromSlash(it.Source))
}

type fileRoot struct {
	Pipeline *pipelineBlock `hcl:"pipeline,block"`
	Contents []*contentBlock `hcl:"content,block"`
}

type pipelineBlock struct {
	SourceRoot      *string `hcl:"source_root"`
	IntermediateDir *string `hcl:"intermediate_dir"`
	OutputDir       *string `hcl:"output_dir"`
	Compression     *string `hcl:"compression"`
}

type contentBlock struct {
	Path       string         `hcl:"path,label"`
	Importer   *string        `hcl:"importer"`
	Processor  *string        `hcl:"processor"`
	Parameters hcl.Expression `hcl:"parameters,optional"`
}

// Load parses the project file at path.
func Load(ctx context.Context, path string) (*Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading project file.", "path", path)

	id := content.NewIdentity(path, "")
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, content.WrapInvalidContent(id, diags, "failed to parse project file")
	}
	return decode(ctx, path, file.Body)
}

// Parse decodes a project from src. filename is used for diagnostics and as
// the base of relative paths.
func Parse(ctx context.Context, filename string, src []byte) (*Project, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, content.WrapInvalidContent(content.NewIdentity(filename, ""), diags, "failed to parse project file")
	}
	return decode(ctx, filename, file.Body)
}

func decode(ctx context.Context, path string, body hcl.Body) (*Project, error) {
	id := content.NewIdentity(path, "")
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, content.WrapInvalidContent(id, diags, "failed to decode project file")
	}

	base := filepath.Dir(path)
	p := &Project{
		Path:            path,
		SourceRoot:      resolve(base, DefaultSourceRoot),
		IntermediateDir: resolve(base, DefaultIntermediateDir),
		OutputDir:       resolve(base, DefaultOutputDir),
		Compression:     DefaultCompression,
	}
	if pb := root.Pipeline; pb != nil {
		if pb.SourceRoot != nil {
			p.SourceRoot = resolve(base, *pb.SourceRoot)
		}
		if pb.IntermediateDir != nil {
			p.IntermediateDir = resolve(base, *pb.IntermediateDir)
		}
		if pb.OutputDir != nil {
			p.OutputDir = resolve(base, *pb.OutputDir)
		}
		if pb.Compression != nil {
			p.Compression = *pb.Compression
		}
	}

	seen := make(map[string]struct{}, len(root.Contents))
	for _, cb := range root.Contents {
		item, err := translateContent(id, cb)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[item.Source]; dup {
			return nil, content.InvalidContentf(id, "content %q is declared more than once", item.Source)
		}
		seen[item.Source] = struct{}{}
		p.Items = append(p.Items, item)
	}

	ctxlog.FromContext(ctx).Debug("Project file loaded.", "path", path, "items", len(p.Items), "source_root", p.SourceRoot)
	return p, nil
}

func translateContent(id content.Identity, cb *contentBlock) (Item, error) {
	source := filepath.ToSlash(filepath.Clean(filepath.FromSlash(cb.Path)))
	if cb.Path == "" || filepath.IsAbs(cb.Path) || source == ".." || strings.HasPrefix(source, "../") {
		return Item{}, content.InvalidContentf(id, "content path %q must be relative to the source root", cb.Path)
	}
	item := Item{Source: source}
	if cb.Importer != nil {
		item.Importer = *cb.Importer
	}
	if cb.Processor != nil {
		item.Processor = *cb.Processor
	}

	params, err := parameters(cb.Parameters)
	if err != nil {
		return Item{}, content.WrapInvalidContent(id.WithFragment("content "+source), err, "invalid parameters")
	}
	item.Parameters = params
	return item, nil
}

func parameters(expr hcl.Expression) (map[string]cty.Value, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("parameters must be an object, got %s", ty.FriendlyName())
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("parameters must be known values")
	}
	out := make(map[string]cty.Value, val.LengthInt())
	for k, v := range val.AsValueMap() {
		out[k] = v
	}
	return out, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// Assets returns the items to build. Without explicit content blocks, every
// file under the source root whose extension is claimed by an importer is
// built with default settings.
func (p *Project) Assets(ctx context.Context, claimed func(ext string) bool) ([]Item, error) {
	if len(p.Items) > 0 {
		return p.Items, nil
	}
	files, err := fsutil.FindFiles(p.SourceRoot, func(path string) bool {
		return claimed(filepath.Ext(path))
	})
	if err != nil {
		return nil, content.WrapPipeline(err, "scanning source root %s", p.SourceRoot)
	}
	items := make([]Item, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(p.SourceRoot, f)
		if err != nil {
			return nil, content.WrapPipeline(err, "relativizing %s", f)
		}
		items = append(items, Item{Source: filepath.ToSlash(rel)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Source < items[j].Source })
	ctxlog.FromContext(ctx).Debug("Discovered content.", "root", p.SourceRoot, "count", len(items))
	return items, nil
}

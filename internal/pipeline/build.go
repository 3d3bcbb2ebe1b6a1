package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/vk/contentgrid/internal/buildcache"
	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/buildlog"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/output"
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/internal/xmlcodec"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// request is one asset build.
type request struct {
	source     string
	key        string
	importer   string
	processor  string
	parameters map[string]cty.Value
	nested     bool
}

// resolved is a request with its components looked up.
type resolved struct {
	request
	importer  *registry.ImporterDescriptor
	processor *registry.ProcessorDescriptor
	output    string
	settings  buildcache.Settings
}

func (m *Manager) nestedRequest(sourceFile, processorName string) (request, error) {
	if sourceFile == "" {
		return request{}, content.Argumentf("nested build needs a source file")
	}
	rel, err := filepath.Rel(m.opts.SourceRoot, sourceFile)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return request{}, content.Argumentf("referenced asset %s is outside the source root %s", sourceFile, m.opts.SourceRoot)
	}
	return request{
		source:    filepath.Clean(sourceFile),
		key:       filepath.ToSlash(rel),
		processor: processorName,
		nested:    true,
	}, nil
}

func (m *Manager) resolve(req request) (*resolved, error) {
	r := &resolved{request: req}

	if req.importer != "" {
		d, ok := m.registry.Importer(req.importer)
		if !ok {
			return nil, content.Pipelinef("unknown importer %q for %s", req.importer, req.key)
		}
		r.importer = d
	} else {
		d, ok := m.registry.ImporterForExtension(filepath.Ext(req.source))
		if !ok {
			return nil, content.Pipelinef("no importer handles %q files (%s)", filepath.Ext(req.source), req.key)
		}
		r.importer = d
	}

	name := req.processor
	if name == "" {
		name = r.importer.DefaultProcessor
	}
	if name == "" {
		return nil, content.Pipelinef("no processor selected for %s and importer %s has no default", req.key, r.importer.Name)
	}
	d, ok := m.registry.Processor(name)
	if !ok {
		return nil, content.Pipelinef("unknown processor %q for %s", name, req.key)
	}
	r.processor = d

	// A nested build with a non-default processor gets its own output and
	// record so it does not clobber the asset's regular build.
	if req.nested && name != r.importer.DefaultProcessor {
		ext := path.Ext(req.key)
		r.key = strings.TrimSuffix(req.key, ext) + "_" + name + ext
	}
	r.output = m.outputPath(r.key)

	paramHash, err := hashParameters(req.parameters)
	if err != nil {
		return nil, err
	}
	r.settings = buildcache.Settings{
		Importer:      r.importer.Name,
		Processor:     r.processor.Name,
		ParameterHash: paramHash,
	}
	return r, nil
}

func (m *Manager) outputPath(key string) string {
	rel := filepath.FromSlash(key)
	return filepath.Join(m.opts.OutputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+output.Extension)
}

func (m *Manager) build(ctx context.Context, req request) (string, error) {
	r, err := m.resolve(req)
	if err != nil {
		return "", err
	}
	if inChain(ctx, r.key) {
		return "", content.Pipelinef("circular build of %s (%s)", r.key, strings.Join(append(chainFrom(ctx), r.key), " -> "))
	}
	if chain := chainFrom(ctx); len(chain) > 0 {
		m.noteNested(chain[len(chain)-1], r.key)
	}

	m.mu.Lock()
	out, done := m.done[r.key]
	m.mu.Unlock()
	if done {
		return out, nil
	}

	if fresh, err := m.upToDate(ctx, r); err != nil {
		return "", err
	} else if fresh {
		m.finish(r)
		m.skipped.Add(1)
		return r.output, nil
	}

	if err := m.run(withChain(ctx, r.key), r); err != nil {
		return "", err
	}
	m.finish(r)
	m.built.Add(1)
	return r.output, nil
}

func (m *Manager) finish(r *resolved) {
	m.mu.Lock()
	m.done[r.key] = r.output
	m.mu.Unlock()
}

func (m *Manager) noteNested(parent, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.nested[parent], key) {
		m.nested[parent] = append(m.nested[parent], key)
	}
}

func (m *Manager) nestedOf(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.nested[key])
}

func (m *Manager) upToDate(ctx context.Context, r *resolved) (bool, error) {
	if m.opts.Rebuild {
		return false, nil
	}
	logger := ctxlog.FromContext(ctx)
	rec, err := m.records.Load(r.key)
	if err != nil {
		logger.Warn("Ignoring unreadable build record.", "asset", r.key, "error", err)
		return false, nil
	}
	if rec == nil {
		return false, nil
	}
	fresh, reason := rec.IsUpToDate(r.settings)
	if !fresh {
		logger.Debug("Rebuilding asset.", "asset", r.key, "reason", reason)
		return false, nil
	}
	if err := m.keepStats(rec); err != nil {
		return false, err
	}
	if err := m.keepNestedStats(ctx, rec, map[string]bool{r.key: true}); err != nil {
		return false, err
	}
	logger.Debug("Asset is up to date.", "asset", r.key)
	return true, nil
}

// keepStats carries the statistics of a skipped asset into this run.
func (m *Manager) keepStats(rec *buildcache.Record) error {
	if m.stats.CopyPrevious(rec.SourceFile) {
		return nil
	}
	return m.stats.RecordBuild(rec.SourceFile, rec.OutputFile, rec.Processor, rec.ContentType, 0)
}

// keepNestedStats does keepStats for every asset rec built on its behalf,
// following their records in turn.
func (m *Manager) keepNestedStats(ctx context.Context, rec *buildcache.Record, seen map[string]bool) error {
	for _, key := range rec.Nested {
		if seen[key] {
			continue
		}
		seen[key] = true
		nested, err := m.records.Load(key)
		if err != nil || nested == nil {
			ctxlog.FromContext(ctx).Debug("No build record for nested asset.", "asset", key, "error", err)
			continue
		}
		if err := m.keepStats(nested); err != nil {
			return err
		}
		if err := m.keepNestedStats(ctx, nested, seen); err != nil {
			return err
		}
	}
	return nil
}

// run imports, processes and writes one asset inside its own build context.
func (m *Manager) run(ctx context.Context, r *resolved) error {
	start := time.Now()

	logger := m.contentLogger(ctx)
	logger.PushFile(r.source)
	defer logger.PopFile()
	if r.nested {
		logger.Indent()
		defer logger.Unindent()
	}
	logger.LogImportantMessage("Building %s", r.key)

	identity := content.NewIdentity(r.source, r.importer.Name)
	ctx = xmlcodec.WithTypes(ctx, m.types)
	ctx, scope, err := buildctx.Begin(ctx, identity, m.opts.IntermediateDir, m.opts.OutputDir, logger,
		buildctx.WithBuilder(m),
		buildctx.WithOutputFilename(r.output),
	)
	if err != nil {
		return err
	}
	defer scope.Release()
	bc := scope.Context()

	imported, err := r.importer.New().Import(ctx, r.source, bc)
	if err != nil {
		return componentError(identity, err, "importer %s failed", r.importer.Name)
	}
	if imported == nil {
		return content.Pipelinef("importer %s returned no content for %s", r.importer.Name, r.key)
	}
	stampIdentity(imported, identity)

	proc, err := m.registry.NewProcessor(r.processor.Name, r.parameters)
	if err != nil {
		return err
	}
	if !r.processor.Accepts(reflect.TypeOf(imported)) {
		return content.Pipelinef("processor %s expects %s but importer %s produced %T",
			r.processor.Name, r.processor.InputType, r.importer.Name, imported)
	}

	processed, err := proc.Process(ctx, imported, bc)
	if err != nil {
		return componentError(identity, err, "processor %s failed", r.processor.Name)
	}

	var buf bytes.Buffer
	if err := xmlcodec.NewEncoder(m.types).Encode(&buf, processed); err != nil {
		return content.WrapPipeline(err, "serializing %s", r.key)
	}
	if err := output.WriteFile(r.output, buf.Bytes(), m.opts.Compression); err != nil {
		return err
	}

	contentType := m.contentTypeName(processed)
	if err := m.stats.RecordBuild(r.source, r.output, r.processor.Name, contentType, time.Since(start)); err != nil {
		return err
	}
	rec, err := buildcache.NewRecord(r.source, r.output, contentType, r.settings, bc.Dependencies())
	if err != nil {
		return err
	}
	rec.Nested = m.nestedOf(r.key)
	return m.records.Save(r.key, rec)
}

// contentLogger returns the logger of the enclosing build, so nested builds
// report under their parent, or a new one for a top-level build.
func (m *Manager) contentLogger(ctx context.Context) buildlog.Logger {
	if parent, err := buildctx.Active(ctx); err == nil {
		return parent.Logger
	}
	return buildlog.New(ctxlog.FromContext(ctx))
}

func (m *Manager) contentTypeName(v any) string {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return ""
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if name, ok := m.types.NameOf(rt); ok {
		return name
	}
	return rt.String()
}

func stampIdentity(v any, id content.Identity) {
	if c, ok := v.(content.Carrier); ok {
		if item := c.ContentItem(); item != nil && item.Identity.IsZero() {
			item.Identity = id
		}
	}
}

// componentError keeps typed errors from components as they are and
// attributes anything else to the component.
func componentError(id content.Identity, err error, format string, args ...any) error {
	var ce *content.Error
	if errors.As(err, &ce) {
		return err
	}
	return content.WrapPipeline(err, format+" on %s", append(args, id.SourceFilename)...)
}

func hashParameters(params map[string]cty.Value) (buildcache.Hash, error) {
	text := make(map[string]string, len(params))
	for k, v := range params {
		data, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return buildcache.Hash{}, content.Argumentf("parameter %q cannot be fingerprinted: %v", k, err)
		}
		text[k] = string(data)
	}
	return buildcache.HashValue(text)
}

type chainKey struct{}

func chainFrom(ctx context.Context) []string {
	chain, _ := ctx.Value(chainKey{}).([]string)
	return chain
}

func withChain(ctx context.Context, key string) context.Context {
	chain := chainFrom(ctx)
	next := make([]string, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, chainKey{}, append(next, key))
}

func inChain(ctx context.Context, key string) bool {
	for _, k := range chainFrom(ctx) {
		if k == key {
			return true
		}
	}
	return false
}

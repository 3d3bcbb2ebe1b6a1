package registry

import (
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vk/contentgrid/internal/content"
	"github.com/zclconf/go-cty/cty"
)

// snapshot is one complete scan result. It is never modified after it is
// published.
type snapshot struct {
	scanned     bool
	fingerprint [32]byte
	importers   map[string]*ImporterDescriptor
	processors  map[string]*ProcessorDescriptor
	extensions  map[string]string
	errs        []error
}

func emptySnapshot() *snapshot {
	return &snapshot{
		importers:  map[string]*ImporterDescriptor{},
		processors: map[string]*ProcessorDescriptor{},
		extensions: map[string]string{},
	}
}

// Registry holds the current component snapshot.
type Registry struct {
	mu      sync.Mutex // serializes Update
	current atomic.Pointer[snapshot]
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.current.Store(emptySnapshot())
	return r
}

func (r *Registry) snap() *snapshot {
	return r.current.Load()
}

// Errors returns the problems recorded by the last scan.
func (r *Registry) Errors() []error {
	return slices.Clone(r.snap().errs)
}

// ImporterForExtension returns the importer claiming ext. The match ignores
// case and accepts the extension with or without its leading dot.
func (r *Registry) ImporterForExtension(ext string) (*ImporterDescriptor, bool) {
	s := r.snap()
	name, ok := s.extensions[normalizeExtension(ext)]
	if !ok {
		return nil, false
	}
	return s.importers[name], true
}

// Importer returns the named importer.
func (r *Registry) Importer(name string) (*ImporterDescriptor, bool) {
	d, ok := r.snap().importers[name]
	return d, ok
}

// Processor returns the named processor.
func (r *Registry) Processor(name string) (*ProcessorDescriptor, bool) {
	d, ok := r.snap().processors[name]
	return d, ok
}

// Importers returns every importer sorted by name.
func (r *Registry) Importers() []*ImporterDescriptor {
	s := r.snap()
	out := make([]*ImporterDescriptor, 0, len(s.importers))
	for _, d := range s.importers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Processors returns every processor sorted by name.
func (r *Registry) Processors() []*ProcessorDescriptor {
	s := r.snap()
	out := make([]*ProcessorDescriptor, 0, len(s.processors))
	for _, d := range s.processors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProcessorsFor returns the processors accepting values of type rt, sorted
// by name.
func (r *Registry) ProcessorsFor(rt reflect.Type) []*ProcessorDescriptor {
	var out []*ProcessorDescriptor
	for _, d := range r.Processors() {
		if d.Accepts(rt) {
			out = append(out, d)
		}
	}
	return out
}

// NewProcessor returns a fresh copy of the named processor with params
// applied on top of its defaults. Unknown parameter names and values that do
// not convert to the parameter's type are argument errors.
func (r *Registry) NewProcessor(name string, params map[string]cty.Value) (Processor, error) {
	d, ok := r.Processor(name)
	if !ok {
		return nil, content.Pipelinef("unknown processor %q", name)
	}
	proto := reflect.ValueOf(d.prototype)
	if proto.Kind() != reflect.Pointer {
		if len(params) > 0 {
			return nil, content.Argumentf("processor %q takes no parameters", name)
		}
		return d.prototype, nil
	}

	clone := reflect.New(proto.Elem().Type())
	clone.Elem().Set(proto.Elem())

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p, ok := d.Parameter(k)
		if !ok {
			return nil, content.Argumentf("processor %q has no parameter %q", name, k)
		}
		if err := p.set(clone, params[k]); err != nil {
			return nil, err
		}
	}
	return clone.Interface().(Processor), nil
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

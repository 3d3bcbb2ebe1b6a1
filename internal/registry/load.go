package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/zeebo/blake3"
)

// Update rescans libs and publishes the result. It returns false, leaving the
// snapshot untouched, when libs describe the same components as the last
// scan.
func (r *Registry) Update(ctx context.Context, libs []Library) bool {
	logger := ctxlog.FromContext(ctx)
	fp := fingerprint(libs)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.current.Load(); cur.scanned && cur.fingerprint == fp {
		logger.Debug("Component libraries unchanged, keeping registry snapshot.")
		return false
	}

	s := scan(ctx, libs)
	s.fingerprint = fp
	r.current.Store(s)

	logger.Debug("Registry snapshot replaced.",
		"importers", len(s.importers), "processors", len(s.processors), "errors", len(s.errs))
	for _, err := range s.errs {
		logger.Warn("Component scan problem.", "error", err)
	}
	return true
}

// fingerprint identifies a library set by library names and the concrete
// types of their components.
func fingerprint(libs []Library) [32]byte {
	lines := make([]string, 0, len(libs))
	for _, lib := range libs {
		line := lib.Name()
		if cl, ok := lib.(ComponentLibrary); ok {
			for _, c := range cl.Components() {
				rt := reflect.TypeOf(c)
				if rt == nil {
					line += "\x00<nil>"
					continue
				}
				line += "\x00" + rt.String()
				if rt.Kind() == reflect.Pointer {
					line += "\x00" + rt.Elem().PkgPath()
				} else {
					line += "\x00" + rt.PkgPath()
				}
			}
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)

	h := blake3.New()
	for _, line := range lines {
		_, _ = h.Write([]byte(line))
		_, _ = h.Write([]byte{'\n'})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func scan(ctx context.Context, libs []Library) *snapshot {
	logger := ctxlog.FromContext(ctx)
	s := emptySnapshot()
	s.scanned = true

	for _, lib := range libs {
		cl, ok := lib.(ComponentLibrary)
		if !ok {
			logger.Debug("Skipping library without components.", "library", lib.Name())
			continue
		}
		for _, c := range cl.Components() {
			if c == nil {
				s.errs = append(s.errs, content.Pipelinef("library %q declares a nil component", lib.Name()))
				continue
			}
			found := false
			if imp, ok := c.(Importer); ok {
				found = true
				s.addImporter(lib.Name(), imp)
			}
			if proc, ok := c.(Processor); ok {
				found = true
				s.addProcessor(lib.Name(), proc)
			}
			if !found {
				s.errs = append(s.errs, content.Pipelinef("library %q declares %T, which is neither an importer nor a processor", lib.Name(), c))
			}
		}
	}
	s.checkDefaultProcessors()
	return s
}

func (s *snapshot) addImporter(lib string, imp Importer) {
	name := componentName(imp)
	if prev, exists := s.importers[name]; exists {
		s.errs = append(s.errs, content.Pipelinef("importer %q is declared by libraries %q and %q", name, prev.Library, lib))
		return
	}
	info := imp.ImporterInfo()
	exts := make([]string, 0, len(info.Extensions))
	for _, ext := range info.Extensions {
		ext = normalizeExtension(ext)
		if ext == "" {
			continue
		}
		if owner, taken := s.extensions[ext]; taken {
			if owner != name {
				s.errs = append(s.errs, content.Pipelinef("extension %q is claimed by importers %q and %q; keeping %q", ext, owner, name, owner))
			}
			continue
		}
		s.extensions[ext] = name
		exts = append(exts, ext)
	}
	if info.DisplayName == "" {
		info.DisplayName = name
	}
	info.Extensions = exts
	s.importers[name] = &ImporterDescriptor{Name: name, Library: lib, ImporterInfo: info, prototype: imp}
}

func (s *snapshot) addProcessor(lib string, proc Processor) {
	name := componentName(proc)
	if prev, exists := s.processors[name]; exists {
		s.errs = append(s.errs, content.Pipelinef("processor %q is declared by libraries %q and %q", name, prev.Library, lib))
		return
	}
	params, err := deriveParameters(proc)
	if err != nil {
		s.errs = append(s.errs, content.WrapPipeline(err, "processor %q", name))
	}
	info := proc.ProcessorInfo()
	if info.DisplayName == "" {
		info.DisplayName = name
	}
	s.processors[name] = &ProcessorDescriptor{
		Name:        name,
		Library:     lib,
		DisplayName: info.DisplayName,
		InputType:   proc.InputType(),
		OutputType:  proc.OutputType(),
		Parameters:  params,
		prototype:   proc,
	}
}

func (s *snapshot) checkDefaultProcessors() {
	names := make([]string, 0, len(s.importers))
	for name := range s.importers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d := s.importers[name]
		if d.DefaultProcessor == "" {
			continue
		}
		if _, ok := s.processors[d.DefaultProcessor]; !ok {
			s.errs = append(s.errs, content.Pipelinef("importer %q names unknown default processor %q", name, d.DefaultProcessor))
		}
	}
}

// String describes the descriptor for logs.
func (d *ImporterDescriptor) String() string {
	return fmt.Sprintf("%s %v", d.Name, d.Extensions)
}

package registry

import (
	"context"
	"reflect"

	"github.com/vk/contentgrid/internal/buildctx"
)

// Library is a compiled-in package of components.
type Library interface {
	Name() string
}

// ComponentLibrary is a Library that declares components. Libraries that do
// not implement it are skipped by the scan.
type ComponentLibrary interface {
	Library
	// Components returns prototype values of the library's importers and
	// processors. Processors with parameters must be pointers so their fields
	// can be set.
	Components() []any
}

// ImporterInfo is the static metadata an importer declares.
type ImporterInfo struct {
	DisplayName       string
	Extensions        []string
	DefaultProcessor  string
	CacheImportedData bool
}

// Importer reads a source file into a content object.
type Importer interface {
	ImporterInfo() ImporterInfo
	Import(ctx context.Context, filename string, bc *buildctx.Context) (any, error)
}

// ProcessorInfo is the static metadata a processor declares.
type ProcessorInfo struct {
	DisplayName string
}

// Processor transforms a content object of InputType into one of OutputType.
type Processor interface {
	ProcessorInfo() ProcessorInfo
	InputType() reflect.Type
	OutputType() reflect.Type
	Process(ctx context.Context, input any, bc *buildctx.Context) (any, error)
}

// ImporterDescriptor records a discovered importer.
type ImporterDescriptor struct {
	Name    string
	Library string
	ImporterInfo

	prototype Importer
}

// New returns the importer.
func (d *ImporterDescriptor) New() Importer {
	return d.prototype
}

// ProcessorDescriptor records a discovered processor.
type ProcessorDescriptor struct {
	Name        string
	Library     string
	DisplayName string
	InputType   reflect.Type
	OutputType  reflect.Type
	Parameters  []ParameterDescriptor

	prototype Processor
}

// Parameter returns the named parameter.
func (d *ProcessorDescriptor) Parameter(name string) (*ParameterDescriptor, bool) {
	for i := range d.Parameters {
		if d.Parameters[i].Name == name {
			return &d.Parameters[i], true
		}
	}
	return nil, false
}

// Accepts reports whether the processor takes values of type rt.
func (d *ProcessorDescriptor) Accepts(rt reflect.Type) bool {
	return accepts(d.InputType, rt)
}

func accepts(want, got reflect.Type) bool {
	if want == nil || got == nil {
		return false
	}
	if got.AssignableTo(want) {
		return true
	}
	return want.Kind() == reflect.Interface && got.Implements(want)
}

// componentName is the stable name of a component: its Go type name without
// the package.
func componentName(c any) string {
	rt := reflect.TypeOf(c)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt.Name()
}

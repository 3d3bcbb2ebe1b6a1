// Package passthrough provides the processor that leaves content unchanged.
package passthrough

import (
	"context"
	"reflect"

	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/registry"
)

// Module implements registry.ComponentLibrary for this package.
type Module struct{}

func (m *Module) Name() string {
	return "passthrough"
}

func (m *Module) Components() []any {
	return []any{PassThroughProcessor{}}
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// PassThroughProcessor returns its input. It accepts every content type.
type PassThroughProcessor struct{}

func (PassThroughProcessor) ProcessorInfo() registry.ProcessorInfo {
	return registry.ProcessorInfo{DisplayName: "No Processing Required"}
}

func (PassThroughProcessor) InputType() reflect.Type { return anyType }
func (PassThroughProcessor) OutputType() reflect.Type { return anyType }

func (PassThroughProcessor) Process(_ context.Context, input any, _ *buildctx.Context) (any, error) {
	return input, nil
}

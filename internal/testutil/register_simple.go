package testutil

import "github.com/vk/contentgrid/internal/xmlcodec"

// SimpleLibrary is a test helper for declaring a component library inline.
type SimpleLibrary struct {
	LibName string
	Items   []any
	Types   map[string]any
}

// Name implements registry.Library.
func (l *SimpleLibrary) Name() string {
	return l.LibName
}

// Components implements registry.ComponentLibrary.
func (l *SimpleLibrary) Components() []any {
	return l.Items
}

// RegisterContentTypes implements xmlcodec.Registrar.
func (l *SimpleLibrary) RegisterContentTypes(t *xmlcodec.TypeTable) {
	for name, sample := range l.Types {
		t.Register(name, sample)
	}
}

// Package texture provides the DDS importer and the texture processor.
package texture

import (
	"github.com/vk/contentgrid/internal/graphics"
	"github.com/vk/contentgrid/internal/xmlcodec"
)

// Namespace is the document namespace of the texture content types.
const Namespace = "ContentGrid.Graphics"

// Module implements registry.ComponentLibrary for this package.
type Module struct{}

func (m *Module) Name() string {
	return "texture"
}

// Components returns the importer and processor prototypes.
func (m *Module) Components() []any {
	return []any{
		&DdsImporter{},
		NewTextureProcessor(),
	}
}

// RegisterContentTypes makes texture content readable from documents.
func (m *Module) RegisterContentTypes(t *xmlcodec.TypeTable) {
	t.Register(Namespace+".TextureContent", graphics.TextureContent{})
	t.Register(Namespace+".BitmapContent", graphics.BitmapContent{})
}

// Package xmlcontent imports intermediate XML documents.
package xmlcontent

import (
	"context"
	"os"

	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/internal/xmlcodec"
)

// Module implements registry.ComponentLibrary for this package.
type Module struct{}

func (m *Module) Name() string {
	return "xmlcontent"
}

func (m *Module) Components() []any {
	return []any{XmlImporter{}}
}

// XmlImporter reads any object graph written in the intermediate format.
// The asset element must name its type.
type XmlImporter struct{}

func (XmlImporter) ImporterInfo() registry.ImporterInfo {
	return registry.ImporterInfo{
		DisplayName:      "XML Content",
		Extensions:       []string{".xml"},
		DefaultProcessor: "PassThroughProcessor",
	}
}

func (XmlImporter) Import(ctx context.Context, filename string, bc *buildctx.Context) (any, error) {
	types := xmlcodec.TypesFrom(ctx)
	if types == nil {
		return nil, content.Pipelinef("XmlImporter needs a type table on the context")
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, content.WrapPipeline(err, "opening %s", filename)
	}
	defer f.Close()

	id := bc.SourceIdentity
	if id.SourceFilename != filename {
		id = content.NewIdentity(filename, "XmlImporter")
	}
	v, err := xmlcodec.NewDecoder(types, id).DecodeAny(f)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, content.InvalidContentf(id, "document holds a null asset")
	}
	if c, ok := v.(content.Carrier); ok {
		c.ContentItem().Identity = id
	}
	bc.Logger.LogMessage("Imported %T", v)
	return v, nil
}

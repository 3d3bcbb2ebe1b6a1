package texture

import (
	"context"
	"fmt"

	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/dds"
	"github.com/vk/contentgrid/internal/graphics"
	"github.com/vk/contentgrid/internal/registry"
)

// DdsImporter reads DDS files into texture content. Layouts that store blue
// first are swapped to Color order, 24-bit layouts are expanded to Color and
// layouts without alpha are made opaque.
type DdsImporter struct{}

func (DdsImporter) ImporterInfo() registry.ImporterInfo {
	return registry.ImporterInfo{
		DisplayName:       "DDS Texture",
		Extensions:        []string{".dds"},
		DefaultProcessor:  "TextureProcessor",
		CacheImportedData: true,
	}
}

func (DdsImporter) Import(ctx context.Context, filename string, bc *buildctx.Context) (any, error) {
	id := bc.SourceIdentity
	if id.SourceFilename != filename {
		id = content.NewIdentity(filename, "DdsImporter")
	}
	tex, err := dds.ReadFile(filename, id)
	if err != nil {
		return nil, err
	}

	out := &graphics.TextureContent{Kind: tex.Kind()}
	out.Identity = id
	for f, chain := range tex.Faces {
		converted := make(graphics.MipmapChain, len(chain))
		for i, bmp := range chain {
			c, err := normalize(bmp, tex.Surface)
			if err != nil {
				return nil, content.WrapInvalidContent(id.WithFragment(fmt.Sprintf("face %d level %d", f, i)), err, "converting surface")
			}
			converted[i] = c
		}
		out.Faces = append(out.Faces, converted)
	}
	if err := out.Validate(); err != nil {
		return nil, content.WrapInvalidContent(id, err, "imported texture is inconsistent")
	}

	bc.Logger.LogMessage("Imported %s %s, %d face(s), %d level(s)", out.Kind, out.Format(), len(out.Faces), len(out.Faces[0]))
	return out, nil
}

func normalize(bmp *graphics.BitmapContent, s dds.Surface) (*graphics.BitmapContent, error) {
	switch bmp.Format {
	case graphics.FormatRgb24:
		return bmp.ExpandRgb24(s.SwapRedBlue)
	case graphics.FormatColor:
		if s.SwapRedBlue {
			bmp.SwapRedBlue()
		}
		if s.Opaque {
			for o := 3; o < len(bmp.Data); o += 4 {
				bmp.Data[o] = 0xff
			}
		}
	}
	return bmp, nil
}

package texture

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/graphics"
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/internal/vecmath"
)

// OutputFormat selects the surface format a processed texture is stored in.
type OutputFormat string

const (
	OutputNoChange OutputFormat = "NoChange"
	OutputColor    OutputFormat = "Color"
)

func (OutputFormat) EnumValues() []string {
	return []string{string(OutputNoChange), string(OutputColor)}
}

// TextureProcessor prepares imported textures for the runtime. Pixel
// operations apply to Color surfaces; on other formats they are skipped with
// a warning.
type TextureProcessor struct {
	ColorKeyColor    vecmath.Color
	ColorKeyEnabled  bool
	GenerateMipmaps  bool
	PremultiplyAlpha bool
	TextureFormat    OutputFormat
}

// NewTextureProcessor returns a processor with the default settings: magenta
// color keying and alpha premultiplication on, formats left unchanged.
func NewTextureProcessor() *TextureProcessor {
	return &TextureProcessor{
		ColorKeyColor:    vecmath.NewColor(255, 0, 255, 255),
		ColorKeyEnabled:  true,
		PremultiplyAlpha: true,
		TextureFormat:    OutputNoChange,
	}
}

var textureType = reflect.TypeOf((*graphics.TextureContent)(nil))

func (p *TextureProcessor) ProcessorInfo() registry.ProcessorInfo {
	return registry.ProcessorInfo{DisplayName: "Texture"}
}

func (p *TextureProcessor) InputType() reflect.Type { return textureType }
func (p *TextureProcessor) OutputType() reflect.Type { return textureType }

func (p *TextureProcessor) Process(ctx context.Context, input any, bc *buildctx.Context) (any, error) {
	tex, ok := input.(*graphics.TextureContent)
	if !ok {
		return nil, content.Argumentf("TextureProcessor cannot process %T", input)
	}
	id := tex.Identity
	if id.IsZero() {
		id = bc.SourceIdentity
	}

	if p.TextureFormat == OutputColor {
		if err := toColor(tex); err != nil {
			return nil, content.WrapInvalidContent(id, err, "converting to %s", graphics.FormatColor)
		}
	}

	isColor := tex.Format() == graphics.FormatColor
	skip := func(op string) {
		bc.Logger.LogWarning("", id, "%s skipped: texture format is %s, not %s", op, tex.Format(), graphics.FormatColor)
	}

	if p.ColorKeyEnabled {
		if isColor {
			if err := eachBitmap(tex, func(b *graphics.BitmapContent) error { return b.ReplaceColorKey(p.ColorKeyColor) }); err != nil {
				return nil, err
			}
		} else {
			skip("color keying")
		}
	}
	if p.GenerateMipmaps {
		if isColor {
			if err := tex.GenerateMipmaps(); err != nil {
				return nil, content.WrapInvalidContent(id, err, "generating mipmaps")
			}
		} else {
			skip("mipmap generation")
		}
	}
	if p.PremultiplyAlpha {
		if isColor {
			if err := eachBitmap(tex, (*graphics.BitmapContent).PremultiplyAlpha); err != nil {
				return nil, err
			}
		} else {
			skip("alpha premultiplication")
		}
	}

	if err := tex.Validate(); err != nil {
		return nil, content.WrapInvalidContent(id, err, "processed texture is inconsistent")
	}
	return tex, nil
}

func eachBitmap(tex *graphics.TextureContent, fn func(*graphics.BitmapContent) error) error {
	for _, chain := range tex.Faces {
		for _, b := range chain {
			if err := fn(b); err != nil {
				return err
			}
		}
	}
	return nil
}

func toColor(tex *graphics.TextureContent) error {
	for f, chain := range tex.Faces {
		for i, b := range chain {
			switch b.Format {
			case graphics.FormatColor:
			case graphics.FormatRgb24:
				c, err := b.ExpandRgb24(false)
				if err != nil {
					return err
				}
				chain[i] = c
			default:
				return fmt.Errorf("face %d level %d: no conversion from %s", f, i, b.Format)
			}
		}
	}
	return nil
}

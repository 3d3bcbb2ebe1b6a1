package graphics

import (
	"fmt"

	"github.com/vk/contentgrid/internal/content"
)

// TextureKind distinguishes the shapes of texture content.
type TextureKind string

const (
	Texture2D   TextureKind = "Texture2D"
	TextureCube TextureKind = "TextureCube"
)

func (TextureKind) EnumValues() []string {
	return []string{string(Texture2D), string(TextureCube)}
}

// Faces returns the number of faces a texture of this kind has.
func (k TextureKind) Faces() int {
	if k == TextureCube {
		return 6
	}
	return 1
}

// BitmapContent is one surface: a single mip level of a single face.
type BitmapContent struct {
	Width  int
	Height int
	Format SurfaceFormat
	Data   []byte
}

// NewBitmap allocates a zeroed bitmap of the given size and format.
func NewBitmap(width, height int, format SurfaceFormat) (*BitmapContent, error) {
	size, err := SurfaceSize(format, width, height)
	if err != nil {
		return nil, err
	}
	return &BitmapContent{Width: width, Height: height, Format: format, Data: make([]byte, size)}, nil
}

// Validate checks that the pixel data length matches the format and size.
func (b *BitmapContent) Validate() error {
	want, err := SurfaceSize(b.Format, b.Width, b.Height)
	if err != nil {
		return err
	}
	if len(b.Data) != want {
		return fmt.Errorf("%s bitmap %dx%d holds %d bytes, want %d", b.Format, b.Width, b.Height, len(b.Data), want)
	}
	return nil
}

// MipmapChain is the ordered mip levels of one face, largest first.
type MipmapChain []*BitmapContent

// TextureContent is the imported or processed form of a 2D or cube texture.
type TextureContent struct {
	content.Item
	Kind  TextureKind
	Faces []MipmapChain
}

// NewTexture2D wraps a single bitmap as a 2D texture.
func NewTexture2D(level0 *BitmapContent) *TextureContent {
	return &TextureContent{Kind: Texture2D, Faces: []MipmapChain{{level0}}}
}

// Validate checks the invariants of the face and mip structure: the face
// count matches the kind, every face has the same number of levels, all
// levels share one format, and each level halves the previous one.
func (t *TextureContent) Validate() error {
	if len(t.Faces) != t.Kind.Faces() {
		return fmt.Errorf("%s has %d faces, want %d", t.Kind, len(t.Faces), t.Kind.Faces())
	}
	levels := len(t.Faces[0])
	if levels == 0 {
		return fmt.Errorf("%s has no mip levels", t.Kind)
	}
	base := t.Faces[0][0]
	for f, chain := range t.Faces {
		if len(chain) != levels {
			return fmt.Errorf("face %d has %d mip levels, want %d", f, len(chain), levels)
		}
		for i, bmp := range chain {
			if bmp.Format != base.Format {
				return fmt.Errorf("face %d level %d is %s, want %s", f, i, bmp.Format, base.Format)
			}
			w, h := MipDimension(base.Width, i), MipDimension(base.Height, i)
			if bmp.Width != w || bmp.Height != h {
				return fmt.Errorf("face %d level %d is %dx%d, want %dx%d", f, i, bmp.Width, bmp.Height, w, h)
			}
			if err := bmp.Validate(); err != nil {
				return fmt.Errorf("face %d level %d: %w", f, i, err)
			}
		}
	}
	return nil
}

// Format returns the surface format of the top level.
func (t *TextureContent) Format() SurfaceFormat {
	if len(t.Faces) == 0 || len(t.Faces[0]) == 0 {
		return ""
	}
	return t.Faces[0][0].Format
}

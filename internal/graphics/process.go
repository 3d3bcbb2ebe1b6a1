package graphics

import (
	"fmt"

	"github.com/vk/contentgrid/internal/vecmath"
)

// ErrNotColor is returned by pixel operations on formats other than Color.
var ErrNotColor = fmt.Errorf("operation requires %s bitmaps", FormatColor)

// GenerateMipmaps rebuilds every face's mip chain from its top level with a
// 2x2 box filter. Existing lower levels are discarded.
func (t *TextureContent) GenerateMipmaps() error {
	for f, chain := range t.Faces {
		top := chain[0]
		if top.Format != FormatColor {
			return ErrNotColor
		}
		generated := MipmapChain{top}
		for cur := top; cur.Width > 1 || cur.Height > 1; {
			next, err := downsample(cur)
			if err != nil {
				return fmt.Errorf("face %d: %w", f, err)
			}
			generated = append(generated, next)
			cur = next
		}
		t.Faces[f] = generated
	}
	return nil
}

func downsample(src *BitmapContent) (*BitmapContent, error) {
	w, h := MipDimension(src.Width, 1), MipDimension(src.Height, 1)
	dst, err := NewBitmap(w, h, FormatColor)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [4]int
			n := 0
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					sx, sy := x*2+dx, y*2+dy
					if sx >= src.Width || sy >= src.Height {
						continue
					}
					o := (sy*src.Width + sx) * 4
					for c := 0; c < 4; c++ {
						sum[c] += int(src.Data[o+c])
					}
					n++
				}
			}
			o := (y*w + x) * 4
			for c := 0; c < 4; c++ {
				dst.Data[o+c] = byte((sum[c] + n/2) / n)
			}
		}
	}
	return dst, nil
}

// ReplaceColorKey makes every pixel equal to key fully transparent black.
func (b *BitmapContent) ReplaceColorKey(key vecmath.Color) error {
	if b.Format != FormatColor {
		return ErrNotColor
	}
	r, g, bl, a := key.R(), key.G(), key.B(), key.A()
	for o := 0; o+3 < len(b.Data); o += 4 {
		if b.Data[o] == r && b.Data[o+1] == g && b.Data[o+2] == bl && b.Data[o+3] == a {
			b.Data[o], b.Data[o+1], b.Data[o+2], b.Data[o+3] = 0, 0, 0, 0
		}
	}
	return nil
}

// PremultiplyAlpha scales each color channel by the pixel's alpha.
func (b *BitmapContent) PremultiplyAlpha() error {
	if b.Format != FormatColor {
		return ErrNotColor
	}
	for o := 0; o+3 < len(b.Data); o += 4 {
		a := int(b.Data[o+3])
		for c := 0; c < 3; c++ {
			b.Data[o+c] = byte((int(b.Data[o+c])*a + 127) / 255)
		}
	}
	return nil
}

// SwapRedBlue exchanges the first and third channel of every 32-bit pixel.
func (b *BitmapContent) SwapRedBlue() {
	for o := 0; o+3 < len(b.Data); o += 4 {
		b.Data[o], b.Data[o+2] = b.Data[o+2], b.Data[o]
	}
}

// ExpandRgb24 converts a 24-bit bitmap to opaque Color. swap indicates the
// source stores blue first.
func (b *BitmapContent) ExpandRgb24(swap bool) (*BitmapContent, error) {
	if b.Format != FormatRgb24 {
		return nil, fmt.Errorf("expected %s bitmap, got %s", FormatRgb24, b.Format)
	}
	dst, err := NewBitmap(b.Width, b.Height, FormatColor)
	if err != nil {
		return nil, err
	}
	pitch := (b.Width*24 + 7) / 8
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			s := y*pitch + x*3
			d := (y*b.Width + x) * 4
			r, g, bl := b.Data[s], b.Data[s+1], b.Data[s+2]
			if swap {
				r, bl = bl, r
			}
			dst.Data[d], dst.Data[d+1], dst.Data[d+2], dst.Data[d+3] = r, g, bl, 255
		}
	}
	return dst, nil
}

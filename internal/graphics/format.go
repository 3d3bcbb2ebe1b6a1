// Package graphics holds the texture content model: bitmaps, mip chains and
// the faces of 2D and cube textures.
package graphics

import (
	"fmt"
	"math"
)

// SurfaceFormat names the pixel layout of a bitmap.
type SurfaceFormat string

const (
	FormatColor       SurfaceFormat = "Color"       // 8-bit RGBA, red first in memory
	FormatBgr565      SurfaceFormat = "Bgr565"      // 16-bit packed
	FormatBgra5551    SurfaceFormat = "Bgra5551"    // 16-bit packed
	FormatBgra4444    SurfaceFormat = "Bgra4444"    // 16-bit packed
	FormatRgb24       SurfaceFormat = "Rgb24"       // 8-bit RGB without alpha
	FormatAlpha8      SurfaceFormat = "Alpha8"      // 8-bit alpha only
	FormatSingle      SurfaceFormat = "Single"      // 32-bit float red
	FormatHalfVector4 SurfaceFormat = "HalfVector4" // 4 x 16-bit float
	FormatVector4     SurfaceFormat = "Vector4"     // 4 x 32-bit float
	FormatDxt1        SurfaceFormat = "Dxt1"
	FormatDxt3        SurfaceFormat = "Dxt3"
	FormatDxt5        SurfaceFormat = "Dxt5"
)

var allFormats = []SurfaceFormat{
	FormatColor, FormatBgr565, FormatBgra5551, FormatBgra4444, FormatRgb24, FormatAlpha8,
	FormatSingle, FormatHalfVector4, FormatVector4, FormatDxt1, FormatDxt3, FormatDxt5,
}

// EnumValues lists every known format.
func (SurfaceFormat) EnumValues() []string {
	out := make([]string, len(allFormats))
	for i, f := range allFormats {
		out[i] = string(f)
	}
	return out
}

// Compressed reports whether the format stores 4x4 pixel blocks.
func (f SurfaceFormat) Compressed() bool {
	switch f {
	case FormatDxt1, FormatDxt3, FormatDxt5:
		return true
	}
	return false
}

// BlockSize returns the byte size of one 4x4 block of a compressed format.
func (f SurfaceFormat) BlockSize() int {
	switch f {
	case FormatDxt1:
		return 8
	case FormatDxt3, FormatDxt5:
		return 16
	}
	return 0
}

// BitsPerPixel returns the pixel depth of an uncompressed format.
func (f SurfaceFormat) BitsPerPixel() int {
	switch f {
	case FormatColor, FormatSingle:
		return 32
	case FormatRgb24:
		return 24
	case FormatBgr565, FormatBgra5551, FormatBgra4444:
		return 16
	case FormatAlpha8:
		return 8
	case FormatHalfVector4:
		return 64
	case FormatVector4:
		return 128
	}
	return 0
}

// SurfaceSize returns the byte size of a width x height surface. Compressed
// formats round both dimensions up to whole blocks, with at least one block
// per row and column.
func SurfaceSize(f SurfaceFormat, width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid surface dimensions %dx%d", width, height)
	}
	if f.Compressed() {
		blocksWide := (width-1)/4 + 1
		blocksHigh := (height-1)/4 + 1
		row, ok := mulSize(blocksWide, f.BlockSize())
		if !ok {
			return 0, fmt.Errorf("%s surface %dx%d is too large", f, width, height)
		}
		size, ok := mulSize(row, blocksHigh)
		if !ok {
			return 0, fmt.Errorf("%s surface %dx%d is too large", f, width, height)
		}
		return size, nil
	}
	bpp := f.BitsPerPixel()
	if bpp == 0 {
		return 0, fmt.Errorf("unknown surface format %q", f)
	}
	rowBits, ok := mulSize(width, bpp)
	if !ok || rowBits > math.MaxInt-7 {
		return 0, fmt.Errorf("%s surface %dx%d is too large", f, width, height)
	}
	size, ok := mulSize((rowBits+7)/8, height)
	if !ok {
		return 0, fmt.Errorf("%s surface %dx%d is too large", f, width, height)
	}
	return size, nil
}

// mulSize multiplies two positive sizes, reporting false on overflow.
func mulSize(a, b int) (int, bool) {
	if a > 0 && b > math.MaxInt/a {
		return 0, false
	}
	return a * b, true
}

// MipDimension returns the size of a dimension at the given mip level.
func MipDimension(size, level int) int {
	return max(1, size>>level)
}

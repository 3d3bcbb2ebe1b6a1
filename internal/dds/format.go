package dds

import (
	"fmt"

	"github.com/vk/contentgrid/internal/graphics"
)

// Surface describes how the pixel data of a file is laid out.
type Surface struct {
	Format graphics.SurfaceFormat
	// SwapRedBlue is set when the file stores blue in the byte the format
	// expects red in. Callers converting to Color must swap the channels.
	SwapRedBlue bool
	// Opaque is set for layouts without an alpha channel. Callers converting
	// to Color must force alpha to full.
	Opaque bool
}

// Numeric codes used in the FourCC field for float formats.
const (
	fourCCHalfVector4 = 113
	fourCCSingle      = 114
	fourCCVector4     = 116
)

var (
	fourCCDXT1 = FourCC("DXT1")
	fourCCDXT2 = FourCC("DXT2")
	fourCCDXT3 = FourCC("DXT3")
	fourCCDXT4 = FourCC("DXT4")
	fourCCDXT5 = FourCC("DXT5")
	fourCCDX10 = FourCC("DX10")
)

// errUnsupported marks a recognized layout that cannot be decoded.
type errUnsupported struct{ what string }

func (e errUnsupported) Error() string { return e.what }

func resolveSurface(pf *PixelFormat) (Surface, error) {
	if pf.Flags&PixelFourCC != 0 {
		return resolveFourCC(pf.FourCC)
	}
	return resolveMasks(pf)
}

func resolveFourCC(code uint32) (Surface, error) {
	switch code {
	case fourCCDXT1:
		return Surface{Format: graphics.FormatDxt1}, nil
	case fourCCDXT3:
		return Surface{Format: graphics.FormatDxt3}, nil
	case fourCCDXT5:
		return Surface{Format: graphics.FormatDxt5}, nil
	case fourCCDXT2, fourCCDXT4:
		return Surface{}, errUnsupported{fmt.Sprintf("premultiplied compression %s is not supported", fourCCString(code))}
	case fourCCDX10:
		return Surface{}, errUnsupported{"extended DX10 header is not supported"}
	case fourCCHalfVector4:
		return Surface{Format: graphics.FormatHalfVector4}, nil
	case fourCCSingle:
		return Surface{Format: graphics.FormatSingle, Opaque: true}, nil
	case fourCCVector4:
		return Surface{Format: graphics.FormatVector4}, nil
	}
	if s := fourCCString(code); s != "" {
		return Surface{}, errUnsupported{fmt.Sprintf("unknown compression %q", s)}
	}
	return Surface{}, errUnsupported{fmt.Sprintf("unknown compression code %d", code)}
}

func resolveMasks(pf *PixelFormat) (Surface, error) {
	hasAlpha := pf.Flags&PixelAlphaPixels != 0 && pf.ABitMask != 0
	switch {
	case pf.Flags&PixelLuminance != 0:
		return Surface{}, errUnsupported{"luminance surfaces are not supported"}

	case pf.Flags&PixelRGB == 0 && (pf.Flags&PixelAlpha != 0 || pf.ABitMask != 0):
		if pf.RGBBitCount == 8 && pf.ABitMask == 0xff {
			return Surface{Format: graphics.FormatAlpha8}, nil
		}
		return Surface{}, errUnsupported{fmt.Sprintf("%d-bit alpha-only surfaces are not supported", pf.RGBBitCount)}

	case pf.RGBBitCount == 32:
		switch {
		case pf.RBitMask == 0x000000ff && pf.GBitMask == 0x0000ff00 && pf.BBitMask == 0x00ff0000:
			return Surface{Format: graphics.FormatColor, Opaque: !hasAlpha}, nil
		case pf.RBitMask == 0x00ff0000 && pf.GBitMask == 0x0000ff00 && pf.BBitMask == 0x000000ff:
			return Surface{Format: graphics.FormatColor, SwapRedBlue: true, Opaque: !hasAlpha}, nil
		}

	case pf.RGBBitCount == 24:
		switch {
		case pf.RBitMask == 0x0000ff && pf.GBitMask == 0x00ff00 && pf.BBitMask == 0xff0000:
			return Surface{Format: graphics.FormatRgb24, Opaque: true}, nil
		case pf.RBitMask == 0xff0000 && pf.GBitMask == 0x00ff00 && pf.BBitMask == 0x0000ff:
			return Surface{Format: graphics.FormatRgb24, SwapRedBlue: true, Opaque: true}, nil
		}

	case pf.RGBBitCount == 16:
		switch {
		case pf.RBitMask == 0xf800 && pf.GBitMask == 0x07e0 && pf.BBitMask == 0x001f:
			return Surface{Format: graphics.FormatBgr565, Opaque: true}, nil
		case pf.RBitMask == 0x001f && pf.GBitMask == 0x07e0 && pf.BBitMask == 0xf800:
			return Surface{Format: graphics.FormatBgr565, SwapRedBlue: true, Opaque: true}, nil
		case pf.ABitMask == 0x8000 && pf.RBitMask == 0x7c00 && pf.GBitMask == 0x03e0 && pf.BBitMask == 0x001f:
			return Surface{Format: graphics.FormatBgra5551}, nil
		case pf.ABitMask == 0xf000 && pf.RBitMask == 0x0f00 && pf.GBitMask == 0x00f0 && pf.BBitMask == 0x000f:
			return Surface{Format: graphics.FormatBgra4444}, nil
		}
	}
	return Surface{}, errUnsupported{fmt.Sprintf("unsupported %d-bit layout (r=%#x g=%#x b=%#x a=%#x)",
		pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask)}
}

// pixelFormatFor returns the pixel format block the writer emits for format.
func pixelFormatFor(format graphics.SurfaceFormat) (PixelFormat, error) {
	pf := PixelFormat{Size: pixelFormatSize}
	switch format {
	case graphics.FormatDxt1, graphics.FormatDxt3, graphics.FormatDxt5:
		pf.Flags = PixelFourCC
		pf.FourCC = FourCC(map[graphics.SurfaceFormat]string{
			graphics.FormatDxt1: "DXT1", graphics.FormatDxt3: "DXT3", graphics.FormatDxt5: "DXT5",
		}[format])
	case graphics.FormatHalfVector4:
		pf.Flags, pf.FourCC = PixelFourCC, fourCCHalfVector4
	case graphics.FormatSingle:
		pf.Flags, pf.FourCC = PixelFourCC, fourCCSingle
	case graphics.FormatVector4:
		pf.Flags, pf.FourCC = PixelFourCC, fourCCVector4
	case graphics.FormatColor:
		pf.Flags = PixelRGB | PixelAlphaPixels
		pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask = 32, 0x000000ff, 0x0000ff00, 0x00ff0000, 0xff000000
	case graphics.FormatRgb24:
		pf.Flags = PixelRGB
		pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask = 24, 0x0000ff, 0x00ff00, 0xff0000
	case graphics.FormatBgr565:
		pf.Flags = PixelRGB
		pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask = 16, 0xf800, 0x07e0, 0x001f
	case graphics.FormatBgra5551:
		pf.Flags = PixelRGB | PixelAlphaPixels
		pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask = 16, 0x7c00, 0x03e0, 0x001f, 0x8000
	case graphics.FormatBgra4444:
		pf.Flags = PixelRGB | PixelAlphaPixels
		pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask = 16, 0x0f00, 0x00f0, 0x000f, 0xf000
	case graphics.FormatAlpha8:
		pf.Flags = PixelAlpha
		pf.RGBBitCount, pf.ABitMask = 8, 0xff
	default:
		return PixelFormat{}, fmt.Errorf("cannot write %q surfaces", format)
	}
	return pf, nil
}

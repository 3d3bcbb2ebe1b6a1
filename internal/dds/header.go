// Package dds reads and writes DirectDraw Surface image containers.
//
// A file is the 4-byte magic "DDS ", a fixed 124-byte header with a nested
// 32-byte pixel format block, and then raw surface data: for every face, every
// mip level from largest to smallest. Surface sizes are always computed from
// the format and dimensions; the header's pitch/linear-size field is not
// trusted because writers disagree on its meaning.
//
// Extended (DX10) headers, volume textures and partial cubemaps are rejected.
package dds

const (
	magic           = "DDS "
	headerSize      = 124
	pixelFormatSize = 32
)

// Header flags.
const (
	FlagCaps        uint32 = 0x1
	FlagHeight      uint32 = 0x2
	FlagWidth       uint32 = 0x4
	FlagPitch       uint32 = 0x8
	FlagPixelFormat uint32 = 0x1000
	FlagMipMapCount uint32 = 0x20000
	FlagLinearSize  uint32 = 0x80000
	FlagDepth       uint32 = 0x800000
)

// Pixel format flags.
const (
	PixelAlphaPixels uint32 = 0x1
	PixelAlpha       uint32 = 0x2
	PixelFourCC      uint32 = 0x4
	PixelRGB         uint32 = 0x40
	PixelLuminance   uint32 = 0x20000
)

// Capability flags.
const (
	CapsComplex uint32 = 0x8
	CapsTexture uint32 = 0x1000
	CapsMipMap  uint32 = 0x400000

	Caps2Cubemap  uint32 = 0x200
	Caps2AllFaces uint32 = 0xFC00
	Caps2Volume   uint32 = 0x200000
)

// cubemapFaceFlags lists the caps2 bits of the six faces in file order.
var cubemapFaceFlags = [6]uint32{0x400, 0x800, 0x1000, 0x2000, 0x4000, 0x8000}

// PixelFormat is the nested pixel format block of the header.
type PixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      uint32
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// Header is the fixed header that follows the magic.
type Header struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       PixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

// MipLevels returns the number of mip levels the header declares.
func (h *Header) MipLevels() int {
	if h.Flags&FlagMipMapCount == 0 || h.MipMapCount == 0 {
		return 1
	}
	return int(h.MipMapCount)
}

// FourCC packs a four-character code the way it is stored in the header.
func FourCC(code string) uint32 {
	return uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
}

func fourCCString(v uint32) string {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return ""
		}
	}
	return string(b)
}

package vecmath

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an 8-bit-per-channel color packed in the engine's ABGR order: red
// in the low byte, alpha in the high byte.
type Color struct {
	Packed uint32
}

// Common colors.
var (
	Transparent = Color{}
	Black       = NewColor(0, 0, 0, 255)
	White       = NewColor(255, 255, 255, 255)
	Magenta     = NewColor(255, 0, 255, 255)
)

// NewColor packs the given channels.
func NewColor(r, g, b, a uint8) Color {
	return Color{Packed: uint32(a)<<24 | uint32(b)<<16 | uint32(g)<<8 | uint32(r)}
}

func (c Color) R() uint8 { return uint8(c.Packed) }
func (c Color) G() uint8 { return uint8(c.Packed >> 8) }
func (c Color) B() uint8 { return uint8(c.Packed >> 16) }
func (c Color) A() uint8 { return uint8(c.Packed >> 24) }

// FromARGB converts a 0xAARRGGBB value, the order used in text documents.
func FromARGB(argb uint32) Color {
	return NewColor(uint8(argb>>16), uint8(argb>>8), uint8(argb), uint8(argb>>24))
}

// ARGB returns the color as 0xAARRGGBB.
func (c Color) ARGB() uint32 {
	return uint32(c.A())<<24 | uint32(c.R())<<16 | uint32(c.G())<<8 | uint32(c.B())
}

// MarshalText writes the color as eight hex digits AARRGGBB.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%08X", c.ARGB())), nil
}

// UnmarshalText reads eight hex digits AARRGGBB, with an optional leading '#'.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "#")
	if len(s) != 8 {
		return fmt.Errorf("invalid color %q: want 8 hex digits AARRGGBB", text)
	}
	argb, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("invalid color %q: want 8 hex digits AARRGGBB", text)
	}
	*c = FromARGB(uint32(argb))
	return nil
}

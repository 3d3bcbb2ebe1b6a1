package graphics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/contentgrid/internal/vecmath"
)

func TestSurfaceSize(t *testing.T) {
	testCases := []struct {
		format SurfaceFormat
		w, h   int
		want   int
	}{
		{FormatDxt1, 64, 64, 16 * 8 * 16},
		{FormatDxt1, 1, 1, 8},
		{FormatDxt5, 5, 3, 2 * 16 * 1},
		{FormatDxt3, 2, 9, 1 * 16 * 3},
		{FormatColor, 3, 2, 24},
		{FormatRgb24, 3, 2, 18},
		{FormatBgr565, 7, 1, 14},
		{FormatAlpha8, 5, 5, 25},
		{FormatVector4, 2, 2, 64},
	}
	for _, tc := range testCases {
		got, err := SurfaceSize(tc.format, tc.w, tc.h)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %dx%d", tc.format, tc.w, tc.h)
	}

	_, err := SurfaceSize(FormatColor, 0, 4)
	assert.Error(t, err)
	_, err = SurfaceSize(SurfaceFormat("Bogus"), 4, 4)
	assert.Error(t, err)
}

func TestSurfaceSize_Overflow(t *testing.T) {
	testCases := []struct {
		name   string
		format SurfaceFormat
		w, h   int
	}{
		{"row bits", FormatVector4, math.MaxInt / 64, 1},
		{"rows", FormatColor, 1 << 40, 1 << 40},
		{"wraps to zero", FormatVector4, 1 << 31, 1 << 31},
		{"compressed blocks", FormatDxt5, math.MaxInt / 2, math.MaxInt / 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SurfaceSize(tc.format, tc.w, tc.h)
			assert.ErrorContains(t, err, "too large")
		})
	}
}

func TestMipDimension(t *testing.T) {
	assert.Equal(t, 64, MipDimension(64, 0))
	assert.Equal(t, 8, MipDimension(64, 3))
	assert.Equal(t, 1, MipDimension(64, 6))
	assert.Equal(t, 1, MipDimension(64, 9))
	assert.Equal(t, 2, MipDimension(5, 1))
}

func solid(t *testing.T, w, h int, c vecmath.Color) *BitmapContent {
	t.Helper()
	b, err := NewBitmap(w, h, FormatColor)
	require.NoError(t, err)
	for o := 0; o < len(b.Data); o += 4 {
		b.Data[o], b.Data[o+1], b.Data[o+2], b.Data[o+3] = c.R(), c.G(), c.B(), c.A()
	}
	return b
}

func TestGenerateMipmaps(t *testing.T) {
	tex := NewTexture2D(solid(t, 8, 2, vecmath.NewColor(10, 20, 30, 255)))
	require.NoError(t, tex.GenerateMipmaps())

	chain := tex.Faces[0]
	require.Len(t, chain, 4)
	assert.Equal(t, []int{8, 4, 2, 1}, []int{chain[0].Width, chain[1].Width, chain[2].Width, chain[3].Width})
	assert.Equal(t, []int{2, 1, 1, 1}, []int{chain[0].Height, chain[1].Height, chain[2].Height, chain[3].Height})
	assert.Equal(t, []byte{10, 20, 30, 255}, chain[3].Data)
	require.NoError(t, tex.Validate())
}

func TestGenerateMipmaps_RequiresColor(t *testing.T) {
	b, err := NewBitmap(4, 4, FormatDxt1)
	require.NoError(t, err)
	assert.ErrorIs(t, NewTexture2D(b).GenerateMipmaps(), ErrNotColor)
}

func TestValidate(t *testing.T) {
	tex := NewTexture2D(solid(t, 4, 4, vecmath.White))
	require.NoError(t, tex.Validate())

	tex.Kind = TextureCube
	assert.ErrorContains(t, tex.Validate(), "has 1 faces, want 6")

	bad := NewTexture2D(solid(t, 4, 4, vecmath.White))
	bad.Faces[0] = append(bad.Faces[0], solid(t, 1, 1, vecmath.White))
	assert.ErrorContains(t, bad.Validate(), "level 1 is 1x1, want 2x2")

	short := NewTexture2D(&BitmapContent{Width: 2, Height: 2, Format: FormatColor, Data: make([]byte, 3)})
	assert.ErrorContains(t, short.Validate(), "holds 3 bytes, want 16")
}

func TestPixelOperations(t *testing.T) {
	b := solid(t, 2, 1, vecmath.Magenta)
	b.Data[4], b.Data[5], b.Data[6], b.Data[7] = 100, 50, 200, 128

	require.NoError(t, b.ReplaceColorKey(vecmath.Magenta))
	assert.Equal(t, []byte{0, 0, 0, 0}, b.Data[:4])

	require.NoError(t, b.PremultiplyAlpha())
	assert.Equal(t, []byte{50, 25, 100, 128}, b.Data[4:])

	b.SwapRedBlue()
	assert.Equal(t, []byte{100, 25, 50, 128}, b.Data[4:])

	dxt, err := NewBitmap(4, 4, FormatDxt5)
	require.NoError(t, err)
	assert.ErrorIs(t, dxt.PremultiplyAlpha(), ErrNotColor)
}

func TestExpandRgb24(t *testing.T) {
	src := &BitmapContent{Width: 2, Height: 1, Format: FormatRgb24, Data: []byte{1, 2, 3, 4, 5, 6}}

	dst, err := src.ExpandRgb24(false)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, dst.Data)

	dst, err = src.ExpandRgb24(true)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 2, 1, 255, 6, 5, 4, 255}, dst.Data)
}

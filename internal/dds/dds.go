package dds

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"

	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/graphics"
)

// Texture is a decoded file.
type Texture struct {
	Header  Header
	Surface Surface
	// Faces holds one mip chain per face: one face for 2D textures, six for
	// cubemaps in +X, -X, +Y, -Y, +Z, -Z order.
	Faces []graphics.MipmapChain
}

// Kind returns the texture shape.
func (t *Texture) Kind() graphics.TextureKind {
	if len(t.Faces) == 6 {
		return graphics.TextureCube
	}
	return graphics.Texture2D
}

// ReadFile decodes the file at path.
func ReadFile(path string, id content.Identity) (*Texture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, content.WrapPipeline(err, "reading %s", path)
	}
	return Decode(bytes.NewReader(data), id)
}

// Decode reads a DDS stream. Malformed input is reported as invalid content
// of id.
func Decode(r io.Reader, id content.Identity) (*Texture, error) {
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, content.WrapInvalidContent(id.WithFragment("magic"), err, "missing DDS magic")
	}
	if string(m[:]) != magic {
		return nil, content.InvalidContentf(id.WithFragment("magic"), "bad magic %q, want %q", m[:], magic)
	}

	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, content.WrapInvalidContent(id.WithFragment("header"), err, "truncated header")
	}
	if err := checkHeader(&h); err != nil {
		return nil, content.WrapInvalidContent(id.WithFragment("header"), err, "invalid header")
	}

	surface, err := resolveSurface(&h.PixelFormat)
	if err != nil {
		return nil, content.WrapInvalidContent(id.WithFragment("pixel format"), err, "unsupported surface format")
	}

	faces, err := faceCount(&h)
	if err != nil {
		return nil, content.WrapInvalidContent(id.WithFragment("caps"), err, "unsupported texture shape")
	}

	tex := &Texture{Header: h, Surface: surface, Faces: make([]graphics.MipmapChain, faces)}
	width, height := int(h.Width), int(h.Height)
	levels := h.MipLevels()
	if most := bits.Len(uint(max(width, height))); levels > most {
		return nil, content.InvalidContentf(id.WithFragment("header"), "mip count %d exceeds the %d levels of a %dx%d surface", levels, most, width, height)
	}

	for f := 0; f < faces; f++ {
		chain := make(graphics.MipmapChain, 0, levels)
		for level := 0; level < levels; level++ {
			w, hh := graphics.MipDimension(width, level), graphics.MipDimension(height, level)
			size, err := graphics.SurfaceSize(surface.Format, w, hh)
			if err != nil {
				return nil, content.WrapInvalidContent(id, err, "face %d level %d", f, level)
			}
			data, err := readSurface(r, size)
			if err != nil {
				return nil, content.WrapInvalidContent(id.WithFragment(fmt.Sprintf("face %d level %d", f, level)), err,
					"truncated surface data (%d bytes expected)", size)
			}
			chain = append(chain, &graphics.BitmapContent{Width: w, Height: hh, Format: surface.Format, Data: data})
		}
		tex.Faces[f] = chain
	}
	return tex, nil
}

// readSurface reads size bytes. The buffer grows with the data actually
// present, so a header declaring more than the stream holds fails without
// allocating the declared size up front.
func readSurface(r io.Reader, size int) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, int64(size))
	if n == int64(size) {
		return buf.Bytes(), nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

func checkHeader(h *Header) error {
	if h.Size != headerSize {
		return fmt.Errorf("header size %d, want %d", h.Size, headerSize)
	}
	if h.PixelFormat.Size != pixelFormatSize {
		return fmt.Errorf("pixel format size %d, want %d", h.PixelFormat.Size, pixelFormatSize)
	}
	if h.Width == 0 || h.Height == 0 {
		return fmt.Errorf("invalid dimensions %dx%d", h.Width, h.Height)
	}
	return nil
}

func faceCount(h *Header) (int, error) {
	if h.Caps2&Caps2Volume != 0 || (h.Flags&FlagDepth != 0 && h.Depth > 1) {
		return 0, errUnsupported{"volume textures are not supported"}
	}
	if h.Caps2&Caps2Cubemap == 0 {
		return 1, nil
	}
	if h.Caps2&Caps2AllFaces != Caps2AllFaces {
		missing := 0
		for _, flag := range cubemapFaceFlags {
			if h.Caps2&flag == 0 {
				missing++
			}
		}
		return 0, errUnsupported{fmt.Sprintf("partial cubemap (%d of 6 faces missing)", missing)}
	}
	return 6, nil
}

// Encode writes tex as a DDS stream.
func Encode(w io.Writer, tex *graphics.TextureContent) error {
	if err := tex.Validate(); err != nil {
		return fmt.Errorf("encoding texture: %w", err)
	}
	top := tex.Faces[0][0]
	pf, err := pixelFormatFor(top.Format)
	if err != nil {
		return err
	}
	levels := len(tex.Faces[0])
	h := Header{
		Size:        headerSize,
		Flags:       FlagCaps | FlagHeight | FlagWidth | FlagPixelFormat,
		Height:      uint32(top.Height),
		Width:       uint32(top.Width),
		PixelFormat: pf,
		Caps:        CapsTexture,
	}
	if top.Format.Compressed() {
		h.Flags |= FlagLinearSize
		h.PitchOrLinearSize = uint32(len(top.Data))
	} else {
		h.Flags |= FlagPitch
		h.PitchOrLinearSize = uint32((top.Width*top.Format.BitsPerPixel() + 7) / 8)
	}
	if levels > 1 {
		h.Flags |= FlagMipMapCount
		h.MipMapCount = uint32(levels)
		h.Caps |= CapsComplex | CapsMipMap
	}
	if tex.Kind == graphics.TextureCube {
		h.Caps |= CapsComplex
		h.Caps2 = Caps2Cubemap | Caps2AllFaces
	}

	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	for _, chain := range tex.Faces {
		for _, bmp := range chain {
			if _, err := w.Write(bmp.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsUnsupported reports whether err is a rejection of a recognized but
// unsupported layout, as opposed to corrupt data.
func IsUnsupported(err error) bool {
	var u errUnsupported
	return errors.As(err, &u)
}

package texture

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/buildlog"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/dds"
	"github.com/vk/contentgrid/internal/graphics"
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/internal/testutil"
	"github.com/vk/contentgrid/internal/vecmath"
	"github.com/zclconf/go-cty/cty"
)

func newBuildContext(t *testing.T, source string, out *testutil.SafeBuffer) *buildctx.Context {
	t.Helper()
	logger := buildlog.New(ctxlog.Discard())
	if out != nil {
		logger = buildlog.New(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	dir := t.TempDir()
	scope, err := buildctx.NewStack().Begin(content.NewIdentity(source, "DdsImporter"), filepath.Join(dir, "obj"), filepath.Join(dir, "bin"), logger)
	require.NoError(t, err)
	t.Cleanup(scope.Release)
	return scope.Context()
}

func writeDDS(t *testing.T, tex *graphics.TextureContent) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, dds.Encode(&buf, tex))
	path := filepath.Join(t.TempDir(), "wall.dds")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func colorBitmap(t *testing.T, w, h int, pixels ...byte) *graphics.BitmapContent {
	t.Helper()
	b, err := graphics.NewBitmap(w, h, graphics.FormatColor)
	require.NoError(t, err)
	copy(b.Data, pixels)
	return b
}

func TestDdsImporter_Color(t *testing.T) {
	src := graphics.NewTexture2D(colorBitmap(t, 2, 1,
		255, 0, 255, 255,
		10, 20, 30, 128,
	))
	path := writeDDS(t, src)
	bc := newBuildContext(t, path, nil)

	got, err := DdsImporter{}.Import(context.Background(), path, bc)
	require.NoError(t, err)

	tex, ok := got.(*graphics.TextureContent)
	require.True(t, ok)
	assert.Equal(t, graphics.Texture2D, tex.Kind)
	assert.Equal(t, path, tex.Identity.SourceFilename)
	require.Len(t, tex.Faces, 1)
	require.Len(t, tex.Faces[0], 1)
	assert.Equal(t, src.Faces[0][0].Data, tex.Faces[0][0].Data)
}

func TestDdsImporter_Rgb24Expanded(t *testing.T) {
	b, err := graphics.NewBitmap(2, 1, graphics.FormatRgb24)
	require.NoError(t, err)
	copy(b.Data, []byte{1, 2, 3, 4, 5, 6})
	path := writeDDS(t, graphics.NewTexture2D(b))

	got, err := DdsImporter{}.Import(context.Background(), path, newBuildContext(t, path, nil))
	require.NoError(t, err)
	tex := got.(*graphics.TextureContent)
	assert.Equal(t, graphics.FormatColor, tex.Format())
	assert.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, tex.Faces[0][0].Data)
}

func TestDdsImporter_Dxt1(t *testing.T) {
	b, err := graphics.NewBitmap(64, 64, graphics.FormatDxt1)
	require.NoError(t, err)
	path := writeDDS(t, graphics.NewTexture2D(b))

	got, err := DdsImporter{}.Import(context.Background(), path, newBuildContext(t, path, nil))
	require.NoError(t, err)
	tex := got.(*graphics.TextureContent)
	assert.Equal(t, graphics.Texture2D, tex.Kind)
	require.Len(t, tex.Faces[0], 1)
	assert.Len(t, tex.Faces[0][0].Data, 16*8*16)
}

func TestDdsImporter_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dds")
	require.NoError(t, os.WriteFile(path, []byte("DDS garbage"), 0o644))

	_, err := DdsImporter{}.Import(context.Background(), path, newBuildContext(t, path, nil))
	require.Error(t, err)
	assert.Equal(t, content.KindInvalidContent, content.KindOf(err))
	id, ok := content.IdentityOf(err)
	require.True(t, ok)
	assert.Equal(t, path, id.SourceFilename)
}

func TestTextureProcessor_Defaults(t *testing.T) {
	tex := graphics.NewTexture2D(colorBitmap(t, 2, 1,
		255, 0, 255, 255,
		200, 100, 50, 0,
	))
	p := NewTextureProcessor()

	out, err := p.Process(context.Background(), tex, newBuildContext(t, "wall.dds", nil))
	require.NoError(t, err)
	got := out.(*graphics.TextureContent)
	// Magenta is keyed out, then the transparent pixel premultiplies to black.
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, got.Faces[0][0].Data)
}

func TestTextureProcessor_Mipmaps(t *testing.T) {
	pixels := bytes.Repeat([]byte{40, 80, 120, 255}, 16)
	tex := graphics.NewTexture2D(colorBitmap(t, 4, 4, pixels...))
	p := &TextureProcessor{GenerateMipmaps: true, TextureFormat: OutputNoChange}

	out, err := p.Process(context.Background(), tex, newBuildContext(t, "wall.dds", nil))
	require.NoError(t, err)
	chain := out.(*graphics.TextureContent).Faces[0]
	require.Len(t, chain, 3)
	assert.Equal(t, 1, chain[2].Width)
	assert.Equal(t, []byte{40, 80, 120, 255}, chain[2].Data)
}

func TestTextureProcessor_CompressedSkipsPixelOps(t *testing.T) {
	b, err := graphics.NewBitmap(8, 8, graphics.FormatDxt5)
	require.NoError(t, err)
	tex := graphics.NewTexture2D(b)
	logs := &testutil.SafeBuffer{}

	out, err := NewTextureProcessor().Process(context.Background(), tex, newBuildContext(t, "wall.dds", logs))
	require.NoError(t, err)
	assert.Same(t, tex, out)
	assert.Contains(t, logs.String(), "color keying skipped")
	assert.Contains(t, logs.String(), "alpha premultiplication skipped")

	p := &TextureProcessor{TextureFormat: OutputColor}
	_, err = p.Process(context.Background(), tex, newBuildContext(t, "wall.dds", nil))
	require.Error(t, err)
	assert.Equal(t, content.KindInvalidContent, content.KindOf(err))
	assert.True(t, strings.Contains(err.Error(), "no conversion from Dxt5"))
}

func TestTextureProcessor_RejectsOtherInput(t *testing.T) {
	_, err := NewTextureProcessor().Process(context.Background(), "text", newBuildContext(t, "a.dds", nil))
	require.Error(t, err)
	assert.Equal(t, content.KindArgument, content.KindOf(err))
}

func TestModule_Registers(t *testing.T) {
	reg := registry.New()
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.Discard())
	require.True(t, reg.Update(ctx, []registry.Library{&Module{}}))
	require.Empty(t, reg.Errors())

	imp, ok := reg.ImporterForExtension(".DDS")
	require.True(t, ok)
	assert.Equal(t, "DdsImporter", imp.Name)
	assert.Equal(t, "TextureProcessor", imp.DefaultProcessor)

	proc, ok := reg.Processor("TextureProcessor")
	require.True(t, ok)
	format, ok := proc.Parameter("TextureFormat")
	require.True(t, ok)
	assert.Equal(t, []string{"NoChange", "Color"}, format.EnumValues)
	key, ok := proc.Parameter("ColorKeyColor")
	require.True(t, ok)
	assert.Equal(t, cty.String, key.CtyType)
	assert.Equal(t, "FFFF00FF", key.DefaultText)

	configured, err := reg.NewProcessor("TextureProcessor", map[string]cty.Value{
		"GenerateMipmaps": cty.True,
		"ColorKeyColor":   cty.StringVal("#FF000000"),
		"TextureFormat":   cty.StringVal("Color"),
	})
	require.NoError(t, err)
	tp := configured.(*TextureProcessor)
	assert.True(t, tp.GenerateMipmaps)
	assert.Equal(t, OutputColor, tp.TextureFormat)
	assert.Equal(t, vecmath.NewColor(0, 0, 0, 255), tp.ColorKeyColor)

	_, err = reg.NewProcessor("TextureProcessor", map[string]cty.Value{"TextureFormat": cty.StringVal("Dxt")})
	require.Error(t, err)
	assert.Equal(t, content.KindArgument, content.KindOf(err))
}

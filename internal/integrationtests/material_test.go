package integrationtests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/contentgrid/internal/app"
	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/dds"
	"github.com/vk/contentgrid/internal/graphics"
	"github.com/vk/contentgrid/internal/output"
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/internal/testutil"
	"github.com/vk/contentgrid/internal/xmlcodec"
	"github.com/vk/contentgrid/modules/passthrough"
	"github.com/vk/contentgrid/modules/texture"
	"github.com/vk/contentgrid/modules/xmlcontent"
)

type material struct {
	content.Item
	Diffuse content.ExternalReference[graphics.TextureContent]
	Width   int32
}

var materialType = reflect.TypeOf((*material)(nil))

// MaterialProcessor builds the diffuse texture of a material and records its
// width.
type MaterialProcessor struct{}

func (MaterialProcessor) ProcessorInfo() registry.ProcessorInfo { return registry.ProcessorInfo{} }
func (MaterialProcessor) InputType() reflect.Type { return materialType }
func (MaterialProcessor) OutputType() reflect.Type { return materialType }

func (MaterialProcessor) Process(ctx context.Context, input any, bc *buildctx.Context) (any, error) {
	m := input.(*material)
	ref := content.NewExternalReference[graphics.TextureContent](m.Diffuse.Filename, &m.Identity)
	v, err := bc.BuildAndLoadAsset(ctx, ref, "TextureProcessor")
	if err != nil {
		return nil, err
	}
	m.Width = int32(v.(*graphics.TextureContent).Faces[0][0].Width)
	return m, nil
}

const materialDoc = `<?xml version="1.0" encoding="utf-8"?>
<ContentDocument>
  <Asset Type="Test.Material">
    <Diffuse><Filename>../textures/stone.dds</Filename></Diffuse>
  </Asset>
</ContentDocument>`

const projectFile = `
pipeline {
  source_root = "Content"
  compression = "zstd"
}

content "materials/stone.xml" {
  processor = "MaterialProcessor"
}
`

func libraries() []registry.Library {
	return []registry.Library{
		&texture.Module{},
		&xmlcontent.Module{},
		&passthrough.Module{},
		&testutil.SimpleLibrary{
			LibName: "materials",
			Items:   []any{MaterialProcessor{}},
			Types:   map[string]any{"Test.Material": material{}},
		},
	}
}

func writeTexture(t *testing.T, path string, size int) {
	t.Helper()
	b, err := graphics.NewBitmap(size, size, graphics.FormatColor)
	require.NoError(t, err)
	for i := range b.Data {
		b.Data[i] = 0x40
	}
	var buf bytes.Buffer
	require.NoError(t, dds.Encode(&buf, graphics.NewTexture2D(b)))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func runBuild(t *testing.T, projectPath string) (*app.App, *testutil.SafeBuffer) {
	t.Helper()
	logs := &testutil.SafeBuffer{}
	a := app.NewApp(logs, &app.Config{ProjectPath: projectPath, WorkerCount: 1, LogLevel: "debug"}, libraries()...)
	t.Cleanup(func() {
		if os.Getenv("CONTENTGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	require.NoError(t, a.Run(context.Background()), logs.String())
	return a, logs
}

func loadMaterial(t *testing.T, a *app.App, path string) *material {
	t.Helper()
	payload, compression, err := output.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, output.CompressionZstd, compression)
	v, err := xmlcodec.NewDecoder(a.Types(), content.NewIdentity(path, "")).DecodeAny(bytes.NewReader(payload))
	require.NoError(t, err)
	m, ok := v.(*material)
	require.True(t, ok, "got %T", v)
	return m
}

func TestMaterial_BuildsReferencedTexture(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"game.hcl":                    projectFile,
		"Content/materials/stone.xml": materialDoc,
	})
	writeTexture(t, filepath.Join(dir, "Content", "textures", "stone.dds"), 4)

	a, _ := runBuild(t, filepath.Join(dir, "game.hcl"))

	assert.FileExists(t, filepath.Join(dir, "bin", "textures", "stone"+output.Extension))
	m := loadMaterial(t, a, filepath.Join(dir, "bin", "materials", "stone"+output.Extension))
	assert.Equal(t, int32(4), m.Width)
}

func TestMaterial_RebuildsWhenTextureChanges(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"game.hcl":                    projectFile,
		"Content/materials/stone.xml": materialDoc,
	})
	texturePath := filepath.Join(dir, "Content", "textures", "stone.dds")
	writeTexture(t, texturePath, 4)
	materialOut := filepath.Join(dir, "bin", "materials", "stone"+output.Extension)

	runBuild(t, filepath.Join(dir, "game.hcl"))

	_, logs := runBuild(t, filepath.Join(dir, "game.hcl"))
	assert.Contains(t, logs.String(), "skipped=1")

	writeTexture(t, texturePath, 8)
	a, logs := runBuild(t, filepath.Join(dir, "game.hcl"))
	assert.Contains(t, logs.String(), "built=2")
	assert.Equal(t, int32(8), loadMaterial(t, a, materialOut).Width)
}

func TestMaterial_MissingTexture(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"game.hcl":                    projectFile,
		"Content/materials/stone.xml": materialDoc,
	})

	a := app.NewApp(&testutil.SafeBuffer{}, &app.Config{ProjectPath: filepath.Join(dir, "game.hcl"), WorkerCount: 1}, libraries()...)
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "bin", "materials", "stone"+output.Extension))
}

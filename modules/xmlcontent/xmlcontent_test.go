package xmlcontent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/buildlog"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/vecmath"
	"github.com/vk/contentgrid/internal/xmlcodec"
)

type level struct {
	content.Item
	Spawn vecmath.Vector3
}

const levelDoc = `<?xml version="1.0" encoding="utf-8"?>
<ContentDocument>
  <Asset Type="Test.Level">
    <Name>one</Name>
    <Spawn>1 2 3</Spawn>
  </Asset>
</ContentDocument>
`

func importFile(t *testing.T, ctx context.Context, doc string) (any, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "level.xml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	scope, err := buildctx.NewStack().Begin(content.NewIdentity(path, "XmlImporter"), "obj", "bin", buildlog.New(ctxlog.Discard()))
	require.NoError(t, err)
	defer scope.Release()
	return XmlImporter{}.Import(ctx, path, scope.Context())
}

func typedContext() context.Context {
	types := xmlcodec.NewTypeTable()
	types.Register("Test.Level", level{})
	return xmlcodec.WithTypes(context.Background(), types)
}

func TestXmlImporter(t *testing.T) {
	v, err := importFile(t, typedContext(), levelDoc)
	require.NoError(t, err)

	lvl, ok := v.(*level)
	require.True(t, ok)
	assert.Equal(t, "one", lvl.Name)
	assert.Equal(t, vecmath.Vector3{X: 1, Y: 2, Z: 3}, lvl.Spawn)
	assert.Equal(t, "XmlImporter", lvl.Identity.SourceTool)
	assert.Equal(t, "level.xml", filepath.Base(lvl.Identity.SourceFilename))
}

func TestXmlImporter_Failures(t *testing.T) {
	_, err := importFile(t, context.Background(), levelDoc)
	require.Error(t, err)
	assert.Equal(t, content.KindPipeline, content.KindOf(err))

	_, err = importFile(t, typedContext(), `<ContentDocument><Asset Type="Test.Level"><Nope/></Asset></ContentDocument>`)
	require.Error(t, err)
	assert.Equal(t, content.KindInvalidContent, content.KindOf(err))
	id, ok := content.IdentityOf(err)
	require.True(t, ok)
	assert.Equal(t, "level.xml", filepath.Base(id.SourceFilename))

	_, err = importFile(t, typedContext(), `<ContentDocument><Asset Type="Test.Level" Null="true"/></ContentDocument>`)
	require.Error(t, err)
	assert.Equal(t, content.KindInvalidContent, content.KindOf(err))
}

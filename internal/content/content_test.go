package content

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExternalReference(t *testing.T) {
	parent := NewIdentity(filepath.Join("Content", "models", "ship.xml"), "XmlImporter")

	testCases := []struct {
		name       string
		filename   string
		relativeTo *Identity
		expected   string
	}{
		{name: "relative to parent", filename: "ship.dds", relativeTo: &parent, expected: filepath.Join("Content", "models", "ship.dds")},
		{name: "parent dir traversal", filename: filepath.Join("..", "tex", "hull.dds"), relativeTo: &parent, expected: filepath.Join("Content", "tex", "hull.dds")},
		{name: "no parent", filename: filepath.Join("a", "b.dds"), expected: filepath.Join("a", "b.dds")},
		{name: "empty", filename: "", relativeTo: &parent, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref := NewExternalReference[string](tc.filename, tc.relativeTo)
			assert.Equal(t, tc.expected, ref.Filename)
			assert.Equal(t, tc.expected == "", ref.IsZero())
		})
	}
}

func TestExternalReference_AbsolutePathIgnoresParent(t *testing.T) {
	parent := NewIdentity(filepath.Join("Content", "a.xml"), "")
	abs, err := filepath.Abs(filepath.Join("elsewhere", "b.dds"))
	require.NoError(t, err)

	ref := NewExternalReference[int](abs, &parent)
	assert.Equal(t, abs, ref.Filename)
	assert.Equal(t, parent, ref.Identity)

	var generic Reference = ref
	assert.Equal(t, abs, generic.ReferencedFilename())
}

func TestItemOpaqueData(t *testing.T) {
	var it Item
	_, ok := it.OpaqueData.Get("missing")
	assert.False(t, ok)

	it.SetOpaque("b", 2)
	it.SetOpaque("a", "one")
	it.SetOpaque("b", 3)

	v, ok := it.OpaqueData.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"a", "b"}, it.OpaqueData.Keys())
	assert.Same(t, &it, it.ContentItem())
}

func TestErrorKinds(t *testing.T) {
	id := NewIdentity("wall.dds", "DdsImporter").WithFragment("header")

	invalid := InvalidContentf(id, "bad magic %q", "XXXX")
	assert.Equal(t, KindInvalidContent, KindOf(invalid))
	assert.Equal(t, `wall.dds (header): bad magic "XXXX"`, invalid.Error())

	got, ok := IdentityOf(fmt.Errorf("importing: %w", invalid))
	require.True(t, ok)
	assert.Equal(t, id, got)

	pipeline := WrapPipeline(errors.New("disk full"), "writing %s", "out.cgx")
	assert.Equal(t, KindPipeline, KindOf(pipeline))
	assert.Equal(t, "writing out.cgx: disk full", pipeline.Error())

	assert.Equal(t, KindArgument, KindOf(Argumentf("filename is required")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestWrapInvalidContent_KeepsExisting(t *testing.T) {
	inner := InvalidContentf(NewIdentity("a.xml", ""), "unknown member")
	wrapped := WrapInvalidContent(NewIdentity("b.xml", ""), inner, "decoding")
	assert.Same(t, inner, wrapped)

	fresh := WrapInvalidContent(NewIdentity("b.xml", ""), errors.New("eof"), "decoding")
	assert.Equal(t, "b.xml: decoding: eof", fresh.Error())
}

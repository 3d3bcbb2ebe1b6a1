package registry

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/contentgrid/internal/buildctx"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/ctxlog"
	"github.com/vk/contentgrid/internal/vecmath"
	"github.com/zclconf/go-cty/cty"
)

type blendMode string

func (blendMode) EnumValues() []string { return []string{"Add", "Multiply"} }

type pngImporter struct{}

func (pngImporter) ImporterInfo() ImporterInfo {
	return ImporterInfo{DisplayName: "PNG", Extensions: []string{".PNG", "apng"}, DefaultProcessor: "sharpenProcessor"}
}

func (pngImporter) Import(context.Context, string, *buildctx.Context) (any, error) { return "pixels", nil }

type rivalImporter struct{}

func (rivalImporter) ImporterInfo() ImporterInfo {
	return ImporterInfo{Extensions: []string{".png", ".tga"}, DefaultProcessor: "missingProcessor"}
}

func (rivalImporter) Import(context.Context, string, *buildctx.Context) (any, error) { return nil, nil }

type sharpenProcessor struct {
	Amount  float32
	Enabled bool
	Mode    blendMode
	Tint    vecmath.Color
	Radius  int32 `param:"BlurRadius"`
	Hidden  int   `param:"-"`
	private int
}

func (*sharpenProcessor) ProcessorInfo() ProcessorInfo { return ProcessorInfo{DisplayName: "Sharpen"} }
func (*sharpenProcessor) InputType() reflect.Type      { return reflect.TypeOf("") }
func (*sharpenProcessor) OutputType() reflect.Type     { return reflect.TypeOf("") }
func (p *sharpenProcessor) Process(_ context.Context, input any, _ *buildctx.Context) (any, error) {
	return input, nil
}

type copyProcessor struct{}

func (copyProcessor) ProcessorInfo() ProcessorInfo { return ProcessorInfo{} }
func (copyProcessor) InputType() reflect.Type      { return reflect.TypeOf((*any)(nil)).Elem() }
func (copyProcessor) OutputType() reflect.Type     { return reflect.TypeOf((*any)(nil)).Elem() }
func (copyProcessor) Process(_ context.Context, input any, _ *buildctx.Context) (any, error) {
	return input, nil
}

type testLib struct {
	name  string
	comps []any
}

func (l testLib) Name() string       { return l.name }
func (l testLib) Components() []any { return l.comps }

type plainLib struct{ name string }

func (l plainLib) Name() string { return l.name }

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.Discard())
}

func defaultLibs() []Library {
	return []Library{
		testLib{name: "images", comps: []any{pngImporter{}, &sharpenProcessor{Amount: 0.5, Mode: "Add", Tint: vecmath.White}}},
		testLib{name: "generic", comps: []any{copyProcessor{}}},
		plainLib{name: "runtime"},
	}
}

func TestUpdate_RegistersComponents(t *testing.T) {
	r := New()
	require.True(t, r.Update(testContext(), defaultLibs()))
	assert.Empty(t, r.Errors())

	imp, ok := r.ImporterForExtension(".png")
	require.True(t, ok)
	assert.Equal(t, "pngImporter", imp.Name)
	assert.Equal(t, "images", imp.Library)
	assert.Equal(t, "PNG", imp.DisplayName)
	assert.Equal(t, []string{".png", ".apng"}, imp.Extensions)
	assert.Equal(t, "sharpenProcessor", imp.DefaultProcessor)

	for _, ext := range []string{"PNG", ".Png", "apng"} {
		_, ok := r.ImporterForExtension(ext)
		assert.True(t, ok, ext)
	}
	_, ok = r.ImporterForExtension(".tga")
	assert.False(t, ok)

	proc, ok := r.Processor("sharpenProcessor")
	require.True(t, ok)
	assert.Equal(t, "Sharpen", proc.DisplayName)
	assert.Equal(t, reflect.TypeOf(""), proc.InputType)

	generic, ok := r.Processor("copyProcessor")
	require.True(t, ok)
	assert.Equal(t, "copyProcessor", generic.DisplayName)
	assert.Empty(t, generic.Parameters)

	names := []string{}
	for _, p := range r.ProcessorsFor(reflect.TypeOf("")) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"copyProcessor", "sharpenProcessor"}, names)
	assert.Len(t, r.Importers(), 1)
}

func TestUpdate_UnchangedLibrariesKeepSnapshot(t *testing.T) {
	r := New()
	ctx := testContext()
	require.True(t, r.Update(ctx, defaultLibs()))
	before := r.current.Load()

	assert.False(t, r.Update(ctx, defaultLibs()))
	assert.Same(t, before, r.current.Load())

	libs := append(defaultLibs(), testLib{name: "rival", comps: []any{rivalImporter{}}})
	assert.True(t, r.Update(ctx, libs))
	assert.NotSame(t, before, r.current.Load())
}

func TestUpdate_EmptyLibrarySetStillScans(t *testing.T) {
	r := New()
	assert.True(t, r.Update(testContext(), nil))
	assert.False(t, r.Update(testContext(), nil))
	assert.Empty(t, r.Importers())
}

func TestUpdate_RecordsCollisions(t *testing.T) {
	r := New()
	libs := append(defaultLibs(),
		testLib{name: "rival", comps: []any{rivalImporter{}}},
		testLib{name: "dupe", comps: []any{pngImporter{}, 42}},
	)
	require.True(t, r.Update(testContext(), libs))

	imp, ok := r.ImporterForExtension(".png")
	require.True(t, ok)
	assert.Equal(t, "pngImporter", imp.Name, "first claimant keeps the extension")

	tga, ok := r.ImporterForExtension("tga")
	require.True(t, ok)
	assert.Equal(t, "rivalImporter", tga.Name)
	assert.Equal(t, []string{".tga"}, tga.Extensions)

	errs := r.Errors()
	require.Len(t, errs, 4)
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
		assert.Equal(t, content.KindPipeline, content.KindOf(err))
	}
	assert.Contains(t, messages[0], `extension ".png" is claimed by importers "pngImporter" and "rivalImporter"`)
	assert.Contains(t, messages[1], `importer "pngImporter" is declared by libraries "images" and "dupe"`)
	assert.Contains(t, messages[2], "int, which is neither an importer nor a processor")
	assert.Contains(t, messages[3], `importer "rivalImporter" names unknown default processor "missingProcessor"`)
}

func TestParameters(t *testing.T) {
	r := New()
	require.True(t, r.Update(testContext(), defaultLibs()))
	proc, ok := r.Processor("sharpenProcessor")
	require.True(t, ok)

	names := make([]string, len(proc.Parameters))
	for i, p := range proc.Parameters {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"Amount", "Enabled", "Mode", "Tint", "BlurRadius"}, names)

	amount, ok := proc.Parameter("Amount")
	require.True(t, ok)
	assert.Equal(t, "float32", amount.TypeName)
	assert.Equal(t, cty.Number, amount.CtyType)
	assert.Equal(t, "0.5", amount.DefaultText)

	mode, _ := proc.Parameter("Mode")
	assert.Equal(t, "blendMode", mode.TypeName)
	assert.Equal(t, []string{"Add", "Multiply"}, mode.EnumValues)
	assert.Equal(t, "Add", mode.DefaultText)

	tint, _ := proc.Parameter("Tint")
	assert.Equal(t, cty.String, tint.CtyType)
	assert.Equal(t, "FFFFFFFF", tint.DefaultText)

	enabled, _ := proc.Parameter("Enabled")
	assert.Equal(t, "false", enabled.DefaultText)
	assert.True(t, enabled.Default.False())
}

func TestNewProcessor(t *testing.T) {
	r := New()
	require.True(t, r.Update(testContext(), defaultLibs()))

	p, err := r.NewProcessor("sharpenProcessor", map[string]cty.Value{
		"Amount":     cty.NumberFloatVal(2.25),
		"Enabled":    cty.StringVal("true"),
		"Mode":       cty.StringVal("Multiply"),
		"Tint":       cty.StringVal("FF00FF00"),
		"BlurRadius": cty.NumberIntVal(3),
	})
	require.NoError(t, err)
	sp := p.(*sharpenProcessor)
	assert.Equal(t, float32(2.25), sp.Amount)
	assert.True(t, sp.Enabled)
	assert.Equal(t, blendMode("Multiply"), sp.Mode)
	assert.Equal(t, vecmath.NewColor(0, 255, 0, 255), sp.Tint)
	assert.Equal(t, int32(3), sp.Radius)

	defaults, err := r.NewProcessor("sharpenProcessor", nil)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), defaults.(*sharpenProcessor).Amount)
	assert.NotSame(t, sp, defaults, "each call returns a fresh copy")

	value, err := r.NewProcessor("copyProcessor", nil)
	require.NoError(t, err)
	assert.Equal(t, copyProcessor{}, value)
}

func TestNewProcessor_Rejections(t *testing.T) {
	r := New()
	require.True(t, r.Update(testContext(), defaultLibs()))

	testCases := []struct {
		name      string
		processor string
		params    map[string]cty.Value
		kind      content.Kind
		want      string
	}{
		{name: "unknown processor", processor: "nope", kind: content.KindPipeline, want: `unknown processor "nope"`},
		{name: "unknown parameter", processor: "sharpenProcessor", params: map[string]cty.Value{"Radius": cty.NumberIntVal(1)}, kind: content.KindArgument, want: `no parameter "Radius"`},
		{name: "hidden parameter", processor: "sharpenProcessor", params: map[string]cty.Value{"Hidden": cty.NumberIntVal(1)}, kind: content.KindArgument, want: `no parameter "Hidden"`},
		{name: "bad enum", processor: "sharpenProcessor", params: map[string]cty.Value{"Mode": cty.StringVal("Screen")}, kind: content.KindArgument, want: `"Screen" is not one of Add, Multiply`},
		{name: "bad conversion", processor: "sharpenProcessor", params: map[string]cty.Value{"Amount": cty.StringVal("lots")}, kind: content.KindArgument, want: "parameter Amount"},
		{name: "null", processor: "sharpenProcessor", params: map[string]cty.Value{"Amount": cty.NullVal(cty.Number)}, kind: content.KindArgument, want: "must not be null"},
		{name: "bad color", processor: "sharpenProcessor", params: map[string]cty.Value{"Tint": cty.StringVal("red")}, kind: content.KindArgument, want: "invalid color"},
		{name: "not a whole number", processor: "sharpenProcessor", params: map[string]cty.Value{"BlurRadius": cty.NumberFloatVal(1.5)}, kind: content.KindArgument, want: "whole number"},
		{name: "value processor", processor: "copyProcessor", params: map[string]cty.Value{"X": cty.True}, kind: content.KindArgument, want: "takes no parameters"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.NewProcessor(tc.processor, tc.params)
			require.Error(t, err)
			assert.Equal(t, tc.kind, content.KindOf(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	r := New()
	ctx := testContext()
	small := defaultLibs()
	large := append(defaultLibs(), testLib{name: "rival", comps: []any{rivalImporter{}}})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// .tga is registered exactly when rivalImporter is.
				s := r.current.Load()
				_, hasTga := s.extensions[".tga"]
				_, hasRival := s.importers["rivalImporter"]
				assert.Equal(t, hasTga, hasRival)
				_ = r.Importers()
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			r.Update(ctx, large)
		} else {
			r.Update(ctx, small)
		}
	}
	close(stop)
	wg.Wait()
}

type filterMode struct{ name string }

func (m *filterMode) EnumValues() []string {
	if m.name != "" {
		return []string{m.name}
	}
	return []string{"Point", "Linear"}
}

func TestEnumValuesOf(t *testing.T) {
	testCases := []struct {
		name string
		typ  reflect.Type
		want []string
	}{
		{name: "value receiver", typ: reflect.TypeOf(blendMode("")), want: []string{"Add", "Multiply"}},
		{name: "value receiver through pointer", typ: reflect.TypeOf((*blendMode)(nil)), want: []string{"Add", "Multiply"}},
		{name: "pointer receiver", typ: reflect.TypeOf(filterMode{}), want: []string{"Point", "Linear"}},
		{name: "pointer field", typ: reflect.TypeOf((*filterMode)(nil)), want: []string{"Point", "Linear"}},
		{name: "not an enum", typ: reflect.TypeOf(""), want: nil},
		{name: "pointer to non-enum", typ: reflect.TypeOf((*int32)(nil)), want: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			require.NotPanics(t, func() { got = enumValuesOf(tc.typ) })
			assert.Equal(t, tc.want, got)
		})
	}
}

package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/contentgrid/internal/content"
)

func sampleRecord(src string) Record {
	return Record{
		SourceFile:          src,
		DestinationFile:     "bin/" + src + ".cgx",
		ProcessorType:       "TextureProcessor",
		ContentType:         "ContentGrid.Graphics.TextureContent",
		SourceFileSize:      2176,
		DestinationFileSize: 1024,
		BuildSeconds:        0.125,
	}
}

func TestRead_MissingFileIsEmpty(t *testing.T) {
	c := Read(t.TempDir())
	assert.Equal(t, 0, c.Len())
}

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "obj")
	c := NewCollection()
	for _, src := range []string{"b.dds", "a.dds", `odd "name", with comma.xml`} {
		require.NoError(t, c.RecordStats(sampleRecord(src)))
	}
	require.NoError(t, c.Write(dir))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	lines := string(data)
	assert.Contains(t, lines, "Source File,Destination File,Processor Type,Content Type,Source File Size,Destination File Size,Build Seconds\n")
	assert.Contains(t, lines, `"a.dds","bin/a.dds.cgx","TextureProcessor","ContentGrid.Graphics.TextureContent",2176,1024,0.125`)

	back := Read(dir)
	assert.Equal(t, c.Records(), back.Records())
	assert.Equal(t, 3, back.Len())

	got := back.Records()
	assert.Equal(t, "a.dds", got[0].SourceFile)
	assert.Equal(t, "b.dds", got[1].SourceFile)
}

func TestWriteRead_EmptyCollection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewCollection().Write(dir))
	assert.Equal(t, 0, Read(dir).Len())
}

func TestRead_CorruptFileIsEmpty(t *testing.T) {
	good := "Source File,Destination File,Processor Type,Content Type,Source File Size,Destination File Size,Build Seconds\n" +
		`"a.dds","bin/a.cgx","P","T",1,2,0.5` + "\n"

	testCases := map[string]string{
		"bad header":       "Source,Destination\n" + `"a.dds","bin/a.cgx","P","T",1,2,0.5` + "\n",
		"short record":     good + `"b.dds","bin/b.cgx","P"` + "\n",
		"bad size":         good + `"b.dds","bin/b.cgx","P","T",big,2,0.5` + "\n",
		"bad seconds":      good + `"b.dds","bin/b.cgx","P","T",1,2,soon` + "\n",
		"unterminated":     good + `"b.dds,"bin/b.cgx` + "\n",
		"empty source":     good + `"","bin/b.cgx","P","T",1,2,0.5` + "\n",
		"empty file":       "",
		"header only typo": "Source File,Destination File,Processor,Content Type,Source File Size,Destination File Size,Build Seconds\n",
	}
	for name, text := range testCases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(text), 0o644))
			assert.Equal(t, 0, Read(dir).Len())
		})
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(good), 0o644))
	assert.Equal(t, 1, Read(dir).Len())
}

func TestRecordStats_LastWriteWins(t *testing.T) {
	c := NewCollection()
	require.NoError(t, c.RecordStats(sampleRecord("a.dds")))
	updated := sampleRecord("a.dds")
	updated.BuildSeconds = 9
	require.NoError(t, c.RecordStats(updated))

	got, ok := c.Get("a.dds")
	require.True(t, ok)
	assert.Equal(t, 9.0, got.BuildSeconds)
	assert.Equal(t, 1, c.Len())

	err := c.RecordStats(Record{})
	require.Error(t, err)
	assert.Equal(t, content.KindArgument, content.KindOf(err))
}

func TestRecordBuild_MeasuresFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dds")
	dst := filepath.Join(dir, "a.cgx")
	require.NoError(t, os.WriteFile(src, make([]byte, 300), 0o644))
	require.NoError(t, os.WriteFile(dst, make([]byte, 40), 0o644))

	c := NewCollection()
	require.NoError(t, c.RecordBuild(src, dst, "TextureProcessor", "Texture", 1500*time.Millisecond))
	require.NoError(t, c.RecordBuild(filepath.Join(dir, "gone.dds"), "", "P", "T", 0))

	got, ok := c.Get(src)
	require.True(t, ok)
	assert.Equal(t, int64(300), got.SourceFileSize)
	assert.Equal(t, int64(40), got.DestinationFileSize)
	assert.Equal(t, 1.5, got.BuildSeconds)

	gone, ok := c.Get(filepath.Join(dir, "gone.dds"))
	require.True(t, ok)
	assert.Zero(t, gone.SourceFileSize)
}

func TestPrevious(t *testing.T) {
	prev := NewCollection()
	require.NoError(t, prev.RecordStats(sampleRecord("a.dds")))
	require.NoError(t, prev.RecordStats(sampleRecord("b.dds")))
	require.NoError(t, prev.RecordStats(sampleRecord("c.dds")))

	cur := NewCollection()
	assert.False(t, cur.CopyPrevious("a.dds"), "no previous collection linked")

	cur.SetPrevious(prev)
	fresh := sampleRecord("b.dds")
	fresh.BuildSeconds = 3
	require.NoError(t, cur.RecordStats(fresh))

	assert.True(t, cur.CopyPrevious("a.dds"))
	assert.False(t, cur.CopyPrevious("missing.dds"))
	assert.Equal(t, 2, cur.Len())

	cur.MergePrevious()
	assert.Equal(t, 3, cur.Len())
	b, _ := cur.Get("b.dds")
	assert.Equal(t, 3.0, b.BuildSeconds, "merge keeps current records")
	assert.Equal(t, 3, prev.Len(), "previous collection is unchanged")
}

func TestConcurrentRecords(t *testing.T) {
	c := NewCollection()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.RecordStats(sampleRecord(fmt.Sprintf("%02d.dds", i))))
			_ = c.Records()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, c.Len())
}

// Package stats keeps per-asset build metrics across runs.
//
// A Collection is persisted as ContentStats.txt in the intermediate
// directory: a fixed seven-column CSV header followed by one quoted record per
// source file, sorted by source path. A file that cannot be parsed is treated
// as absent.
package stats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/fsutil"
)

// FileName is the name of the statistics file inside its directory.
const FileName = "ContentStats.txt"

var columns = []string{
	"Source File",
	"Destination File",
	"Processor Type",
	"Content Type",
	"Source File Size",
	"Destination File Size",
	"Build Seconds",
}

// Record is the outcome of building one source file.
type Record struct {
	SourceFile          string
	DestinationFile     string
	ProcessorType       string
	ContentType         string
	SourceFileSize      int64
	DestinationFileSize int64
	BuildSeconds        float64
}

// Collection is a set of records keyed by source path. It is safe for
// concurrent use.
type Collection struct {
	mu       sync.Mutex
	records  map[string]Record
	previous *Collection
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{records: make(map[string]Record)}
}

// Read loads the statistics file in dir. A missing, unreadable or malformed
// file yields an empty collection.
func Read(dir string) *Collection {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return NewCollection()
	}
	records, err := parse(data)
	if err != nil {
		return NewCollection()
	}
	c := NewCollection()
	for _, r := range records {
		c.records[r.SourceFile] = r
	}
	return c
}

func parse(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(columns)

	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if strings.Join(head, ",") != strings.Join(columns, ",") {
		return nil, fmt.Errorf("unexpected header %q", head)
	}

	var out []Record
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRecord(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func parseRecord(fields []string) (Record, error) {
	srcSize, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("source size: %w", err)
	}
	dstSize, err := strconv.ParseInt(fields[5], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("destination size: %w", err)
	}
	secs, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return Record{}, fmt.Errorf("build seconds: %w", err)
	}
	if fields[0] == "" {
		return Record{}, fmt.Errorf("empty source file")
	}
	return Record{
		SourceFile:          fields[0],
		DestinationFile:     fields[1],
		ProcessorType:       fields[2],
		ContentType:         fields[3],
		SourceFileSize:      srcSize,
		DestinationFileSize: dstSize,
		BuildSeconds:        secs,
	}, nil
}

// Write stores the collection as the statistics file in dir, creating dir if
// needed. Records are sorted by source path.
func (c *Collection) Write(dir string) error {
	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))
	b.WriteString("\n")
	for _, r := range c.Records() {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%d,%d,%s\n",
			quote(r.SourceFile), quote(r.DestinationFile), quote(r.ProcessorType), quote(r.ContentType),
			r.SourceFileSize, r.DestinationFileSize, strconv.FormatFloat(r.BuildSeconds, 'f', -1, 64))
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, FileName), []byte(b.String())); err != nil {
		return content.WrapPipeline(err, "writing build statistics")
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// RecordStats stores r, replacing any record for the same source file.
func (c *Collection) RecordStats(r Record) error {
	if r.SourceFile == "" {
		return content.Argumentf("statistics record needs a source file")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[r.SourceFile] = r
	return nil
}

// RecordBuild stores the outcome of a build, measuring both files on disk.
// Files that cannot be stat'ed count as zero bytes.
func (c *Collection) RecordBuild(sourceFile, destinationFile, processorType, contentType string, elapsed time.Duration) error {
	return c.RecordStats(Record{
		SourceFile:          sourceFile,
		DestinationFile:     destinationFile,
		ProcessorType:       processorType,
		ContentType:         contentType,
		SourceFileSize:      fileSize(sourceFile),
		DestinationFileSize: fileSize(destinationFile),
		BuildSeconds:        elapsed.Seconds(),
	})
}

func fileSize(path string) int64 {
	if path == "" {
		return 0
	}
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// Get returns the record for sourceFile.
func (c *Collection) Get(sourceFile string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[sourceFile]
	return r, ok
}

// Records returns every record sorted by source path.
func (c *Collection) Records() []Record {
	c.mu.Lock()
	out := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SourceFile < out[j].SourceFile })
	return out
}

// Len returns the number of records.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// SetPrevious links the collection of an earlier run.
func (c *Collection) SetPrevious(prev *Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous = prev
}

// MergePrevious copies every record of the previous collection whose source
// file has no record in c.
func (c *Collection) MergePrevious() {
	c.mu.Lock()
	prev := c.previous
	c.mu.Unlock()
	if prev == nil || prev == c {
		return
	}
	old := prev.Records()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range old {
		if _, ok := c.records[r.SourceFile]; !ok {
			c.records[r.SourceFile] = r
		}
	}
}

// CopyPrevious carries the previous record for sourceFile into c and reports
// whether one existed.
func (c *Collection) CopyPrevious(sourceFile string) bool {
	c.mu.Lock()
	prev := c.previous
	c.mu.Unlock()
	if prev == nil || prev == c {
		return false
	}
	r, ok := prev.Get(sourceFile)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[sourceFile] = r
	return true
}

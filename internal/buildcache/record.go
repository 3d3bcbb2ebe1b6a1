// Package buildcache persists what each asset was last built from, so an
// unchanged asset can be skipped on the next run.
//
// One record per asset is stored as deterministic CBOR at
// <intermediate>/<asset>.cgr. A record lists the importer, processor and
// parameter fingerprint used, the hash of the source file, and the hash of
// every dependency registered during the build.
package buildcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/vk/contentgrid/internal/content"
	"github.com/vk/contentgrid/internal/fsutil"
)

// Extension is appended to the asset name to form the record file name.
const Extension = ".cgr"

const recordVersion = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("buildcache: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("buildcache: CBOR decoder initialization failed: " + err.Error())
	}
}

// Dependency is a file the build read, with its hash at build time.
type Dependency struct {
	Path string `cbor:"path"`
	Hash Hash   `cbor:"hash"`
}

// Record describes the last successful build of one asset.
type Record struct {
	Version       int          `cbor:"v"`
	SourceFile    string       `cbor:"source"`
	SourceHash    Hash         `cbor:"source_hash"`
	Importer      string       `cbor:"importer"`
	Processor     string       `cbor:"processor"`
	ParameterHash Hash         `cbor:"params"`
	Dependencies  []Dependency `cbor:"deps,omitempty"`
	OutputFile    string       `cbor:"output"`
	ContentType   string       `cbor:"content_type,omitempty"`
	// Nested holds the record keys of assets built on behalf of this one.
	Nested []string `cbor:"nested,omitempty"`
}

// Settings identifies how an asset is about to be built.
type Settings struct {
	Importer      string
	Processor     string
	ParameterHash Hash
}

// IsUpToDate reports whether building with s would reproduce r. The reason
// names the first difference found.
func (r *Record) IsUpToDate(s Settings) (bool, string) {
	switch {
	case r.Version != recordVersion:
		return false, fmt.Sprintf("record version %d", r.Version)
	case r.Importer != s.Importer:
		return false, fmt.Sprintf("importer changed from %s to %s", r.Importer, s.Importer)
	case r.Processor != s.Processor:
		return false, fmt.Sprintf("processor changed from %s to %s", r.Processor, s.Processor)
	case r.ParameterHash != s.ParameterHash:
		return false, "processor parameters changed"
	}
	if _, err := os.Stat(r.OutputFile); err != nil {
		return false, "output missing"
	}
	if h, err := HashFile(r.SourceFile); err != nil || h != r.SourceHash {
		return false, "source changed"
	}
	for _, dep := range r.Dependencies {
		if h, err := HashFile(dep.Path); err != nil || h != dep.Hash {
			return false, fmt.Sprintf("dependency %s changed", dep.Path)
		}
	}
	return true, ""
}

// NewRecord hashes the source file and dependencies of a finished build.
func NewRecord(sourceFile, outputFile, contentType string, s Settings, deps []string) (*Record, error) {
	srcHash, err := HashFile(sourceFile)
	if err != nil {
		return nil, content.WrapPipeline(err, "hashing source %s", sourceFile)
	}
	r := &Record{
		Version:       recordVersion,
		SourceFile:    sourceFile,
		SourceHash:    srcHash,
		Importer:      s.Importer,
		Processor:     s.Processor,
		ParameterHash: s.ParameterHash,
		OutputFile:    outputFile,
		ContentType:   contentType,
	}
	for _, dep := range deps {
		h, err := HashFile(dep)
		if err != nil {
			return nil, content.WrapPipeline(err, "hashing dependency %s", dep)
		}
		r.Dependencies = append(r.Dependencies, Dependency{Path: dep, Hash: h})
	}
	return r, nil
}

// Store reads and writes records under one intermediate directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the record file of the asset named key, a slash-separated
// path relative to the source root.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key)+Extension)
}

// Load returns the record for key, or nil when none exists.
func (s *Store) Load(key string) (*Record, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, content.WrapPipeline(err, "reading build record")
	}
	var r Record
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, content.WrapPipeline(err, "decoding build record %s", s.Path(key))
	}
	return &r, nil
}

// Save stores r as the record for key.
func (s *Store) Save(key string, r *Record) error {
	data, err := encMode.Marshal(r)
	if err != nil {
		return content.WrapPipeline(err, "encoding build record")
	}
	if err := fsutil.WriteFileAtomic(s.Path(key), data); err != nil {
		return content.WrapPipeline(err, "writing build record")
	}
	return nil
}

// Remove deletes the record for key if it exists.
func (s *Store) Remove(key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return content.WrapPipeline(err, "removing build record")
	}
	return nil
}

package content

import "path/filepath"

// ExternalReference points at another asset that has not been built yet. T is
// the content type the reference is expected to resolve to once built.
type ExternalReference[T any] struct {
	Filename string
	Identity Identity `content:"-"`
}

// NewExternalReference creates a reference to filename. A relative filename is
// resolved against the directory of relativeTo's source file when relativeTo
// is non-nil.
func NewExternalReference[T any](filename string, relativeTo *Identity) ExternalReference[T] {
	ref := ExternalReference[T]{Filename: filename}
	if filename == "" {
		return ref
	}
	if relativeTo != nil {
		if !filepath.IsAbs(filename) && relativeTo.SourceFilename != "" {
			filename = filepath.Join(filepath.Dir(relativeTo.SourceFilename), filename)
		}
		ref.Identity = *relativeTo
	}
	ref.Filename = filepath.Clean(filename)
	return ref
}

// IsZero reports whether the reference points nowhere.
func (r ExternalReference[T]) IsZero() bool {
	return r.Filename == ""
}

// ReferencedFilename returns the file the reference points at. It lets code
// that does not know T walk references generically.
func (r ExternalReference[T]) ReferencedFilename() string {
	return r.Filename
}

// Reference is implemented by every ExternalReference instantiation.
type Reference interface {
	ReferencedFilename() string
}

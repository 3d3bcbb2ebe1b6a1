package content

import "fmt"

// Identity records where a piece of content came from.
type Identity struct {
	SourceFilename     string
	SourceTool         string
	FragmentIdentifier string
}

// NewIdentity returns an Identity for a source file produced by the named tool.
func NewIdentity(sourceFilename, sourceTool string) Identity {
	return Identity{SourceFilename: sourceFilename, SourceTool: sourceTool}
}

// WithFragment returns a copy of the identity pointing at a sub-object of the
// same file, such as a line or an element path.
func (id Identity) WithFragment(fragment string) Identity {
	id.FragmentIdentifier = fragment
	return id
}

// IsZero reports whether the identity carries no source information.
func (id Identity) IsZero() bool {
	return id.SourceFilename == "" && id.SourceTool == "" && id.FragmentIdentifier == ""
}

func (id Identity) String() string {
	switch {
	case id.SourceFilename == "":
		return "<unknown source>"
	case id.FragmentIdentifier != "":
		return fmt.Sprintf("%s (%s)", id.SourceFilename, id.FragmentIdentifier)
	default:
		return id.SourceFilename
	}
}

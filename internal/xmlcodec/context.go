package xmlcodec

import "context"

// Registrar is implemented by component libraries that define content types
// which may appear in documents.
type Registrar interface {
	RegisterContentTypes(t *TypeTable)
}

type typesKey struct{}

// WithTypes returns a context carrying t, so importers reading documents
// resolve names against the table the pipeline writes with.
func WithTypes(ctx context.Context, t *TypeTable) context.Context {
	return context.WithValue(ctx, typesKey{}, t)
}

// TypesFrom returns the table carried by ctx, or nil.
func TypesFrom(ctx context.Context) *TypeTable {
	t, _ := ctx.Value(typesKey{}).(*TypeTable)
	return t
}

// Package content defines the value types shared by every stage of the
// asset-build pipeline.
//
// # Identity and items
//
// Every object flowing through the pipeline embeds an Item, which carries a
// display name, the Identity of the source file it came from, and an open
// OpaqueData map for metadata the strong object model does not cover. The
// Identity is purely diagnostic: it is attached to errors and warnings and is
// never part of content equality.
//
// # Ownership
//
// An item is owned by whichever stage currently holds it. Importers hand their
// result to a processor, processors hand theirs to the writer; no two stages
// mutate the same item.
//
// # Errors
//
// Failures are reported as *Error values of one of three kinds:
//
//   - KindInvalidContent: the input file is malformed for its format. Always
//     carries the Identity of the offending content.
//   - KindPipeline: a condition internal to the build machinery, such as a
//     missing build context or a registry collision.
//   - KindArgument: a caller passed a nil or empty required argument.
//
// Use KindOf to branch on the kind of any wrapped error.
package content

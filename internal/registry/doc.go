// Package registry matches source files to the components that build them.
//
// Components are compiled in. Each component library is a Go package exposing
// a Module value; the application lists those modules and hands them to
// Registry.Update, which inspects every component the library declares and
// records a descriptor for each importer and processor it finds.
//
// Descriptors are published as one immutable snapshot. Readers always see a
// complete snapshot: either the one before a rescan or the one after it.
// Problems found while scanning, such as two importers claiming the same
// extension, are recorded on the snapshot and reported by Errors rather than
// aborting the scan.
package registry

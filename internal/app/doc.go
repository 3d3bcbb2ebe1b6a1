// Package app wires the content pipeline together. It owns the logger, the
// component registry and the content type table, and runs a build from a
// Config, decoupled from any specific entrypoint like a CLI.
package app

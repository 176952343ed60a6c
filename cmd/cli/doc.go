// Package cli assembles the tend command hierarchy: configuration
// loading, structured logging, and the maintenance subcommands for
// workflows, docs, dependencies, and the working tree.
package cli

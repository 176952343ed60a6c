// Package workspace maintains the working tree of a project checkout:
// it removes build artifacts and caches, and personalizes a freshly
// cloned template by rewriting placeholder names across tracked files.
package workspace

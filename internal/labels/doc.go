// Package labels reconciles a repository's GitHub labels with a declarative
// label set, creating missing labels and updating existing ones through the
// gh CLI.
package labels

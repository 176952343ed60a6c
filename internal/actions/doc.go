// Package actions keeps SHA-pinned GitHub Actions references in workflow
// files synchronized with the tags their commits resolve to. It scans
// workflow YAML for pinned uses lines, resolves each commit to a tag through
// the GitHub API, classifies staleness, and rewrites inline version comments
// or upgrades pins to newer tags.
package actions

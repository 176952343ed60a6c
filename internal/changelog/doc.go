// Package changelog detects drift between changelog version headings and
// git tags.
package changelog

// Package todos moves checked Markdown checklist items from a todo file
// into a dated section of an archive file.
package todos

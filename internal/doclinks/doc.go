// Package doclinks rewrites relative links in documentation pages that
// escape the documentation root into absolute repository URLs. Code blocks,
// inline code spans, and HTML comments are masked before rewriting so
// example links inside them are never touched.
package doclinks

// Package deps reports and maintains the versions of Python dependencies
// declared in pyproject.toml: installed and latest versions via pip, inline
// version comments on dependency lines, and upgrades.
package deps

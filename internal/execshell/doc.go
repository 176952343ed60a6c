// Package execshell wraps os/exec with typed tool names, captured output,
// and lifecycle notifications for the external commands tend depends on.
package execshell

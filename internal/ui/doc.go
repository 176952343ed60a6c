// Package ui renders human-readable messages for subprocess lifecycle
// events when console logging is enabled.
package ui

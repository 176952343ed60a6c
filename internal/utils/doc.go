// Package utils provides shared configuration, logging, and output plumbing
// for the tend command-line application.
package utils

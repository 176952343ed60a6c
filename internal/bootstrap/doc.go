// Package bootstrap prepares a fresh clone for development by checking
// prerequisites and running the one-time setup steps.
package bootstrap

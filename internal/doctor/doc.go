// Package doctor implements environment and repository diagnostics. Checks
// are independent predicates that report pass, warn, or fail without ever
// blocking: optional findings never affect the exit code, and repository
// rule evaluation always exits cleanly.
package doctor

// Package githubapi provides a best-effort GitHub REST client. Every request
// degrades to a nil payload on failure: rate limits produce a logged hint to
// configure a token, missing resources are silent, and transport errors are
// logged diagnostics. Successful payloads are cached on disk with a TTL so
// repeated invocations stay within unauthenticated rate limits.
package githubapi

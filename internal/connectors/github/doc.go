// Package github loads repository files through the GitHub REST API.
//
// It is the document source for github.com URLs when no git binary is
// available or when github.api is enabled. A single recursive tree request
// lists the default branch (or the ref named in the URL), and each accepted
// blob is fetched and decoded. The same directory, file and size filters as
// the filesystem loader apply.
//
// # Authentication
//
// A personal access token is optional. Without one, requests are
// unauthenticated and GitHub allows 60 per hour; with one, 5,000 per hour.
// The limiter throttles proactively and waits for the reset window when the
// remaining quota drops below a small buffer.
package github

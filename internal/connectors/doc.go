// Package connectors provides document sources for local directories and
// remote repositories, and the Router that picks one from the shape of the
// root it is given.
//
//   - filesystem: walks a local tree and watches it with fsnotify
//   - git: shallow-clones any http(s), ssh or scp-style remote
//   - github: fetches github.com repositories through the REST API
package connectors

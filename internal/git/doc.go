// Package git checks whether files companion writes could be committed.
//
// Export archives and the database sit wherever the user points them. When
// that is inside a git work tree, the files should be ignored, never
// tracked. Checks shell out to the git binary; without it every path is
// treated as outside a repository.
package git

// Package app runs one generation pass: it loads the workspace's build
// files, resolves the target graph and writes the Makefile. It does not
// depend on any entrypoint such as the CLI.
package app

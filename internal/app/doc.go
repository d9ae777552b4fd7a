// Package app contains the application lifecycle: it loads allocation
// scripts, runs each against a fresh dimension stack and renders the
// reports, or hands a single stack to an interactive session. It is
// decoupled from any specific entrypoint like a CLI.
package app

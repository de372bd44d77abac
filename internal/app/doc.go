// Package app wires application dependencies for the CLI.
//
// It loads Config, builds the zap logger, and constructs the artifact stores,
// the results store factory and the export, import and inspect services,
// exposing them via the Wire struct for commands to use.
package app

// Package commands implements the odbbridge CLI: one file per subcommand,
// sharing the config and logger built by the root command.
package commands

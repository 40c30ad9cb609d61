// Package meta holds identifiers shared across the CLI.
package meta

const (
	// CLIName names the binary, its config directory and its env prefix.
	CLIName = "embedctl"
)

// Package cli locates the claude executable and translates resolved options
// into its command line and environment.
//
// Discovery order:
//  1. Discoverer.CliPath, when set (nothing else is tried)
//  2. $PATH
//  3. Common install locations (see DefaultCommonPaths)
//
// BuildArgs always produces a one-shot stream-json invocation:
//
//	claude --print --output-format stream-json --verbose [flags...]
//
// The prompt itself is written to the process's stdin by the transport.
package cli

// Package config provides the resolved invocation configuration and the
// transport contract shared by the pipeline's packages.
package config

import (
	"context"
	"iter"
)

// Transport owns a single agent process invocation.
//
// The default implementation is subprocess.CLITransport which spawns the
// Claude CLI. Custom transports can be injected via Options.NewTransport for
// testing or alternative runtimes.
type Transport interface {
	// Connect starts the process and hands it the prompt.
	Connect(ctx context.Context) error

	// ReceiveMessages returns a lazy sequence of decoded output records.
	// The sequence ends when the process closes its output; a failure is
	// yielded as the final element.
	ReceiveMessages(ctx context.Context) iter.Seq2[map[string]any, error]

	// Disconnect terminates and reaps the process and releases its handles.
	// It must be safe to call more than once and from any exit path.
	Disconnect() error
}

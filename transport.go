package claudepipe

import (
	"log/slog"

	"github.com/wagiedev/claude-pipeline-go/internal/config"
	"github.com/wagiedev/claude-pipeline-go/internal/subprocess"
)

// Transport owns one agent process invocation. Implement it to replace the
// CLI subprocess in tests or to run the agent somewhere else.
type Transport = config.Transport

// TransportFactory creates the transport for one invocation.
type TransportFactory = config.TransportFactory

// NewCLITransport is the default TransportFactory: it spawns the claude CLI.
func NewCLITransport(log *slog.Logger, prompt string, options *config.Options) Transport {
	return subprocess.NewCLITransport(log, prompt, options)
}

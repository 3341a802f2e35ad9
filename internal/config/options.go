package config

import (
	"log/slog"
	"maps"
	"slices"
	"time"
)

// MCPServer describes one external MCP server the agent process should connect to.
// Stdio servers set Command/Args/Env; sse and http servers set URL/Headers.
type MCPServer struct {
	Type    string            `json:"type,omitempty" koanf:"type"`
	Command string            `json:"command,omitempty" koanf:"command"`
	Args    []string          `json:"args,omitempty" koanf:"args"`
	Env     map[string]string `json:"env,omitempty" koanf:"env"`
	URL     string            `json:"url,omitempty" koanf:"url"`
	Headers map[string]string `json:"headers,omitempty" koanf:"headers"`
}

// TransportFactory creates the transport for one invocation.
type TransportFactory func(log *slog.Logger, prompt string, options *Options) Transport

// Options is the resolved configuration for a single invocation.
//
// Translating a caller's vocabulary into these fields happens in the public
// option functions; everything below is already in the agent's terms.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// CliPath is the explicit path to the claude CLI binary.
	// If empty, the CLI will be searched in PATH.
	CliPath string

	// Model specifies which Claude model to use.
	Model string

	// FallbackModel specifies a model to use if the primary model is unavailable.
	FallbackModel string

	// AllowedTools is a list of pre-approved tools that can be used without prompting.
	AllowedTools []string

	// DisallowedTools is a list of tools that are explicitly blocked.
	DisallowedTools []string

	// PermissionMode controls how permissions are handled.
	// Valid values: "acceptEdits", "bypassPermissions", "default", "dontAsk", "plan".
	// Legacy aliases "acceptAll" and "prompt" are normalized.
	PermissionMode string

	// Cwd sets the working directory for the CLI process.
	Cwd string

	// Env provides additional environment variables for the CLI process.
	Env map[string]string

	// AddDirs is a list of additional directories to make accessible.
	AddDirs []string

	// Timeout bounds the lifetime of the CLI process. Zero means no limit.
	Timeout time.Duration

	// SessionID resumes an existing conversation (translated to --resume).
	SessionID string

	// MaxTurns limits the maximum number of agent turns.
	MaxTurns int

	// SystemPrompt replaces the default system prompt.
	SystemPrompt string

	// AppendSystemPrompt is appended to the default system prompt.
	AppendSystemPrompt string

	// MCPServers configures external MCP servers, keyed by server name.
	MCPServers map[string]MCPServer

	// MCPConfig is a path to an MCP config file or a raw JSON string.
	// If set, this takes precedence over MCPServers.
	MCPConfig string

	// OutputSchema is a JSON schema the agent's final answer must satisfy.
	// It is passed through --json-schema.
	OutputSchema map[string]any

	// ExtraArgs provides arbitrary CLI flags to pass to the CLI.
	// If the value is nil, the flag is passed without a value (boolean flag).
	ExtraArgs map[string]*string

	// MaxBufferSize sets the maximum bytes of a single stdout line.
	// If nil, a 1MB limit is used.
	MaxBufferSize *int

	// Stderr is a callback function for handling stderr output.
	Stderr func(string)

	// NewTransport overrides the default CLI transport.
	// This field is not serialized to JSON.
	NewTransport TransportFactory `json:"-"`
}

// Clone returns a copy of o whose maps and slices can be modified without
// affecting o. Function-valued fields and the logger are shared.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}

	c := *o
	c.AllowedTools = slices.Clone(o.AllowedTools)
	c.DisallowedTools = slices.Clone(o.DisallowedTools)
	c.AddDirs = slices.Clone(o.AddDirs)
	c.Env = maps.Clone(o.Env)
	c.MCPServers = maps.Clone(o.MCPServers)
	c.OutputSchema = maps.Clone(o.OutputSchema)
	c.ExtraArgs = maps.Clone(o.ExtraArgs)

	if o.MaxBufferSize != nil {
		size := *o.MaxBufferSize
		c.MaxBufferSize = &size
	}

	return &c
}

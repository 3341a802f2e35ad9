package claudepipe

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/claude-pipeline-go/internal/config"
	"github.com/wagiedev/claude-pipeline-go/internal/session"
)

// Options is the full configuration of a query or session: the agent
// settings passed to the CLI, the interceptor chain, and session persistence.
type Options struct {
	config.Options

	// Interceptors configures the chain every query runs through.
	Interceptors InterceptorConfig

	// SessionStore persists the captured session id under SessionKey.
	// Only sessions use it.
	SessionStore session.Store
	SessionKey   string

	err error
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

func applyOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return NopLogger()
	}

	return o.Logger
}

// fail records the first option error. Queries built from these options
// fail with it without starting the agent.
func (o *Options) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithModel specifies which Claude model to use (e.g., "claude-sonnet-4-6" or "opus").
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithFallbackModel sets the model used when the primary one is overloaded.
func WithFallbackModel(model string) Option {
	return func(o *Options) {
		o.FallbackModel = model
	}
}

// WithAllowedTools pre-approves tools so the agent can use them without prompting.
func WithAllowedTools(tools ...string) Option {
	return func(o *Options) {
		o.AllowedTools = append(o.AllowedTools, tools...)
	}
}

// WithDisallowedTools blocks tools.
func WithDisallowedTools(tools ...string) Option {
	return func(o *Options) {
		o.DisallowedTools = append(o.DisallowedTools, tools...)
	}
}

// WithPermissionMode controls how permissions are handled.
// Valid values: "default", "acceptEdits", "plan", "bypassPermissions", "dontAsk".
func WithPermissionMode(mode string) Option {
	return func(o *Options) {
		o.PermissionMode = mode
	}
}

// WithCwd sets the working directory for the CLI process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithEnv adds environment variables for the CLI process. Later calls
// override earlier keys.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithAddDirs grants the agent access to additional directories.
func WithAddDirs(dirs ...string) Option {
	return func(o *Options) {
		o.AddDirs = append(o.AddDirs, dirs...)
	}
}

// WithTimeout bounds the lifetime of each CLI process.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithSessionID resumes an existing CLI session.
// Inside a Session the captured id takes precedence.
func WithSessionID(id string) Option {
	return func(o *Options) {
		o.SessionID = id
	}
}

// WithCliPath sets the explicit path to the claude CLI binary.
// If not set, the CLI will be searched in PATH.
func WithCliPath(path string) Option {
	return func(o *Options) {
		o.CliPath = path
	}
}

// WithMaxTurns limits the number of agent turns.
func WithMaxTurns(maxTurns int) Option {
	return func(o *Options) {
		o.MaxTurns = maxTurns
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// WithAppendSystemPrompt appends to the default system prompt.
func WithAppendSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.AppendSystemPrompt = prompt
	}
}

// WithMCPServers configures external MCP servers keyed by name.
func WithMCPServers(servers map[string]MCPServer) Option {
	return func(o *Options) {
		o.MCPServers = servers
	}
}

// WithMCPConfig sets an MCP config file path or raw JSON string.
// It takes precedence over WithMCPServers.
func WithMCPConfig(pathOrJSON string) Option {
	return func(o *Options) {
		o.MCPConfig = pathOrJSON
	}
}

// WithOutputSchema asks the agent for a final answer matching schema.
func WithOutputSchema(schema map[string]any) Option {
	return func(o *Options) {
		o.OutputSchema = schema
	}
}

// WithJSONSchema is WithOutputSchema for a typed schema.
func WithJSONSchema(schema *jsonschema.Schema) Option {
	return func(o *Options) {
		if schema == nil {
			o.OutputSchema = nil

			return
		}

		data, err := json.Marshal(schema)
		if err != nil {
			o.fail(fmt.Errorf("encode output schema: %w", err))

			return
		}

		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			o.fail(fmt.Errorf("decode output schema: %w", err))

			return
		}

		o.OutputSchema = m
	}
}

// WithExtraArgs passes arbitrary flags to the CLI. A nil value is passed as
// a bare flag.
func WithExtraArgs(args map[string]*string) Option {
	return func(o *Options) {
		if o.ExtraArgs == nil {
			o.ExtraArgs = make(map[string]*string, len(args))
		}

		for k, v := range args {
			o.ExtraArgs[k] = v
		}
	}
}

// WithMaxBufferSize sets the maximum size of one line of CLI output.
func WithMaxBufferSize(size int) Option {
	return func(o *Options) {
		o.MaxBufferSize = &size
	}
}

// WithStderr receives each line the CLI writes to stderr.
func WithStderr(fn func(string)) Option {
	return func(o *Options) {
		o.Stderr = fn
	}
}

// WithTransport replaces the CLI subprocess, typically with a fake in tests.
func WithTransport(factory TransportFactory) Option {
	return func(o *Options) {
		o.NewTransport = factory
	}
}

// WithInterceptors appends interceptors to the chain, outermost first.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(o *Options) {
		o.Interceptors.Interceptors = append(o.Interceptors.Interceptors, interceptors...)
	}
}

// WithInterceptorConfig sets the chain's debug, timeout and size limits.
// Interceptors already added are kept when cfg lists none.
func WithInterceptorConfig(cfg InterceptorConfig) Option {
	return func(o *Options) {
		if len(cfg.Interceptors) == 0 {
			cfg.Interceptors = o.Interceptors.Interceptors
		}

		o.Interceptors = cfg
	}
}

// WithFileConfig applies settings loaded with LoadConfig. Non-empty values
// override options set before it.
func WithFileConfig(fc *FileConfig) Option {
	return func(o *Options) {
		if fc == nil {
			return
		}

		fc.ApplyTo(&o.Options)

		s := fc.Interceptors
		if s.Debug {
			o.Interceptors.Debug = true
		}

		if s.Timeout > 0 {
			o.Interceptors.Timeout = s.Timeout
		}

		if s.MaxContextSize > 0 {
			o.Interceptors.MaxContextSize = s.MaxContextSize
		}
	}
}

// WithSessionStore persists a session's id under key so a later process can
// resume the conversation.
func WithSessionStore(store session.Store, key string) Option {
	return func(o *Options) {
		o.SessionStore = store
		o.SessionKey = key
	}
}

package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys use a double underscore: CLAUDEPIPE_INTERCEPTORS__TIMEOUT=5s.
const EnvPrefix = "CLAUDEPIPE_"

// FileConfig is the file/environment form of the invocation defaults.
type FileConfig struct {
	CliPath            string               `koanf:"cli_path"`
	Model              string               `koanf:"model"`
	FallbackModel      string               `koanf:"fallback_model"`
	PermissionMode     string               `koanf:"permission_mode"`
	AllowedTools       []string             `koanf:"allowed_tools"`
	DisallowedTools    []string             `koanf:"disallowed_tools"`
	Cwd                string               `koanf:"cwd"`
	AddDirs            []string             `koanf:"add_dirs"`
	Env                map[string]string    `koanf:"env"`
	Timeout            time.Duration        `koanf:"timeout"`
	MaxTurns           int                  `koanf:"max_turns"`
	SystemPrompt       string               `koanf:"system_prompt"`
	AppendSystemPrompt string               `koanf:"append_system_prompt"`
	MCPServers         map[string]MCPServer `koanf:"mcp_servers"`
	Interceptors       InterceptorSettings  `koanf:"interceptors"`
}

// InterceptorSettings mirrors the interceptor chain configuration knobs.
type InterceptorSettings struct {
	Debug          bool          `koanf:"debug"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxContextSize int           `koanf:"max_context_size"`
}

// Load reads invocation defaults from a YAML file (if path is non-empty) and
// then from CLAUDEPIPE_* environment variables, which take precedence.
func Load(path string) (*FileConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg FileConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	mode, err := ParsePermissionMode(cfg.PermissionMode)
	if err != nil {
		return nil, err
	}

	cfg.PermissionMode = mode

	return &cfg, nil
}

// ApplyTo copies every non-zero field of c onto o. Slices and maps are
// copied, not shared.
func (c *FileConfig) ApplyTo(o *Options) {
	if c == nil || o == nil {
		return
	}

	setString(&o.CliPath, c.CliPath)
	setString(&o.Model, c.Model)
	setString(&o.FallbackModel, c.FallbackModel)
	setString(&o.PermissionMode, c.PermissionMode)
	setString(&o.Cwd, c.Cwd)
	setString(&o.SystemPrompt, c.SystemPrompt)
	setString(&o.AppendSystemPrompt, c.AppendSystemPrompt)

	if len(c.AllowedTools) > 0 {
		o.AllowedTools = slices.Clone(c.AllowedTools)
	}

	if len(c.DisallowedTools) > 0 {
		o.DisallowedTools = slices.Clone(c.DisallowedTools)
	}

	if len(c.AddDirs) > 0 {
		o.AddDirs = slices.Clone(c.AddDirs)
	}

	if len(c.Env) > 0 {
		o.Env = maps.Clone(c.Env)
	}

	if len(c.MCPServers) > 0 {
		o.MCPServers = maps.Clone(c.MCPServers)
	}

	if c.Timeout > 0 {
		o.Timeout = c.Timeout
	}

	if c.MaxTurns > 0 {
		o.MaxTurns = c.MaxTurns
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/wagiedev/claude-pipeline-go/internal/config"
)

// Environment markers set on every spawned process.
const (
	EntrypointEnv   = "CLAUDE_CODE_ENTRYPOINT"
	EntrypointValue = "sdk-go-pipeline"
	VersionEnv      = "CLAUDE_PIPELINE_VERSION"
	Version         = "0.1.0"
)

// BuildArgs translates resolved options into CLI arguments for a one-shot
// invocation. The prompt is not part of the arguments; it is written to stdin.
func BuildArgs(options *config.Options) ([]string, error) {
	if options == nil {
		options = &config.Options{}
	}

	args := []string{"--print", "--output-format", "stream-json", "--verbose"}

	if options.Model != "" {
		args = append(args, "--model", options.Model)
	}

	if options.FallbackModel != "" {
		args = append(args, "--fallback-model", options.FallbackModel)
	}

	if options.PermissionMode != "" {
		args = append(args, "--permission-mode", config.NormalizePermissionMode(options.PermissionMode))
	}

	if len(options.AllowedTools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(options.AllowedTools, ","))
	}

	if len(options.DisallowedTools) > 0 {
		args = append(args, "--disallowed-tools", strings.Join(options.DisallowedTools, ","))
	}

	for _, dir := range options.AddDirs {
		args = append(args, "--add-dir", dir)
	}

	if options.SessionID != "" {
		args = append(args, "--resume", options.SessionID)
	}

	if options.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(options.MaxTurns))
	}

	if options.SystemPrompt != "" {
		args = append(args, "--system-prompt", options.SystemPrompt)
	}

	if options.AppendSystemPrompt != "" {
		args = append(args, "--append-system-prompt", options.AppendSystemPrompt)
	}

	mcpConfig, err := mcpConfigValue(options)
	if err != nil {
		return nil, err
	}

	if mcpConfig != "" {
		args = append(args, "--mcp-config", mcpConfig)
	}

	if len(options.OutputSchema) > 0 {
		schemaJSON, err := json.Marshal(options.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal output schema: %w", err)
		}

		args = append(args, "--json-schema", string(schemaJSON))
	}

	// Sorted so the command line is reproducible.
	for _, key := range slices.Sorted(maps.Keys(options.ExtraArgs)) {
		if value := options.ExtraArgs[key]; value == nil {
			args = append(args, "--"+key)
		} else {
			args = append(args, "--"+key, *value)
		}
	}

	return args, nil
}

// mcpConfigValue returns the --mcp-config value. An explicit MCPConfig
// (file path or raw JSON) takes precedence over MCPServers.
func mcpConfigValue(options *config.Options) (string, error) {
	if options.MCPConfig != "" {
		return options.MCPConfig, nil
	}

	if len(options.MCPServers) == 0 {
		return "", nil
	}

	data, err := json.Marshal(map[string]any{"mcpServers": options.MCPServers})
	if err != nil {
		return "", fmt.Errorf("marshal mcp servers: %w", err)
	}

	return string(data), nil
}

// BuildEnvironment constructs the environment for the CLI process: the
// current environment, the pipeline markers, then Options.Env overrides.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()
	env = append(env,
		EntrypointEnv+"="+EntrypointValue,
		VersionEnv+"="+Version,
	)

	if options == nil {
		return env
	}

	for _, key := range slices.Sorted(maps.Keys(options.Env)) {
		env = append(env, key+"="+options.Env[key])
	}

	return env
}

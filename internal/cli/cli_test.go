package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wagiedev/claude-pipeline-go/internal/config"
	sdkerrors "github.com/wagiedev/claude-pipeline-go/internal/errors"
)

// flagValue returns the argument following flag, or "" when flag is absent.
func flagValue(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}

	return args[i+1]
}

func TestDiscoverer_ExplicitPathMissing(t *testing.T) {
	d := &Discoverer{CliPath: "/nonexistent/path/to/claude", SkipVersionCheck: true}

	_, err := d.Discover(context.Background())

	notFound, ok := errors.AsType[*sdkerrors.CLINotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"/nonexistent/path/to/claude"}, notFound.SearchedPaths)
	require.Equal(t, sdkerrors.KindTransport, sdkerrors.KindOf(err))
}

func TestDiscoverer_ExplicitPath(t *testing.T) {
	fakeCLI := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(fakeCLI, []byte("#!/bin/sh\necho 2.1.0\n"), 0o755))

	d := &Discoverer{CliPath: fakeCLI, SkipVersionCheck: true}

	path, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, fakeCLI, path)
}

func TestDiscoverer_FallsBackToCommonPaths(t *testing.T) {
	dir := t.TempDir()
	installed := filepath.Join(dir, "claude")
	require.NoError(t, os.WriteFile(installed, []byte("#!/bin/sh\n"), 0o755))

	d := &Discoverer{
		SkipVersionCheck: true,
		LookPath:         func(string) (string, error) { return "", errors.New("not on PATH") },
		CommonPaths:      []string{filepath.Join(dir, "missing"), installed},
	}

	path, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, installed, path)
}

func TestDiscoverer_NotFoundListsSearchedPaths(t *testing.T) {
	d := &Discoverer{
		SkipVersionCheck: true,
		LookPath:         func(string) (string, error) { return "", errors.New("not on PATH") },
		CommonPaths:      []string{"/nope/claude"},
	}

	_, err := d.Discover(context.Background())

	notFound, ok := errors.AsType[*sdkerrors.CLINotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"$PATH", "/nope/claude"}, notFound.SearchedPaths)
}

func TestBuildArgs_Minimal(t *testing.T) {
	args, err := BuildArgs(&config.Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"--print", "--output-format", "stream-json", "--verbose"}, args)

	args, err = BuildArgs(nil)
	require.NoError(t, err)
	require.Len(t, args, 4)
}

func TestBuildArgs_WithOptions(t *testing.T) {
	args, err := BuildArgs(&config.Options{
		Model:              "sonnet",
		FallbackModel:      "haiku",
		PermissionMode:     "acceptAll",
		AllowedTools:       []string{"Read", "Grep"},
		DisallowedTools:    []string{"Bash"},
		AddDirs:            []string{"/a", "/b"},
		MaxTurns:           5,
		SystemPrompt:       "You are helpful",
		AppendSystemPrompt: "Be brief",
	})
	require.NoError(t, err)

	require.Equal(t, "sonnet", flagValue(args, "--model"))
	require.Equal(t, "haiku", flagValue(args, "--fallback-model"))
	require.Equal(t, config.PermissionModeBypassPermissions, flagValue(args, "--permission-mode"))
	require.Equal(t, "Read,Grep", flagValue(args, "--allowed-tools"))
	require.Equal(t, "Bash", flagValue(args, "--disallowed-tools"))
	require.Equal(t, "5", flagValue(args, "--max-turns"))
	require.Equal(t, "You are helpful", flagValue(args, "--system-prompt"))
	require.Equal(t, "Be brief", flagValue(args, "--append-system-prompt"))

	var dirs []string

	for i, arg := range args {
		if arg == "--add-dir" {
			dirs = append(dirs, args[i+1])
		}
	}

	require.Equal(t, []string{"/a", "/b"}, dirs)
	require.NotContains(t, args, "--resume")
}

func TestBuildArgs_SessionIDBecomesResume(t *testing.T) {
	args, err := BuildArgs(&config.Options{SessionID: "S1"})
	require.NoError(t, err)
	require.Equal(t, "S1", flagValue(args, "--resume"))
}

func TestBuildArgs_MCPServers(t *testing.T) {
	args, err := BuildArgs(&config.Options{
		MCPServers: map[string]config.MCPServer{
			"calc": {Command: "calc-server", Args: []string{"--stdio"}},
			"docs": {Type: "http", URL: "https://example.invalid/mcp"},
		},
	})
	require.NoError(t, err)

	var payload struct {
		MCPServers map[string]config.MCPServer `json:"mcpServers"`
	}

	require.NoError(t, json.Unmarshal([]byte(flagValue(args, "--mcp-config")), &payload))
	require.Equal(t, "calc-server", payload.MCPServers["calc"].Command)
	require.Equal(t, "http", payload.MCPServers["docs"].Type)
}

func TestBuildArgs_MCPConfigTakesPrecedence(t *testing.T) {
	args, err := BuildArgs(&config.Options{
		MCPConfig:  "/path/to/mcp.json",
		MCPServers: map[string]config.MCPServer{"calc": {Command: "calc-server"}},
	})
	require.NoError(t, err)
	require.Equal(t, "/path/to/mcp.json", flagValue(args, "--mcp-config"))
}

func TestBuildArgs_OutputSchema(t *testing.T) {
	args, err := BuildArgs(&config.Options{
		OutputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"answer": map[string]any{"type": "string"}},
		},
	})
	require.NoError(t, err)
	require.JSONEq(t,
		`{"type":"object","properties":{"answer":{"type":"string"}}}`,
		flagValue(args, "--json-schema"),
	)
}

func TestBuildArgs_ExtraArgsSorted(t *testing.T) {
	args, err := BuildArgs(&config.Options{
		ExtraArgs: map[string]*string{
			"debug-to-stderr": nil,
			"betas":           new("b1"),
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"--betas", "b1", "--debug-to-stderr"}, args[4:])
}

func TestBuildEnvironment(t *testing.T) {
	env := BuildEnvironment(&config.Options{Env: map[string]string{"MY_VAR": "x"}})

	require.Contains(t, env, EntrypointEnv+"="+EntrypointValue)
	require.Contains(t, env, VersionEnv+"="+Version)
	require.Equal(t, "MY_VAR=x", env[len(env)-1], "caller overrides come last")
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{name: "equal", a: "2.0.0", b: "2.0.0", expected: 0},
		{name: "major less", a: "1.0.0", b: "2.0.0", expected: -1},
		{name: "minor less", a: "1.0.0", b: "1.1.0", expected: -1},
		{name: "patch less", a: "1.0.0", b: "1.0.1", expected: -1},
		{name: "minor rollover", a: "1.99.0", b: "2.0.0", expected: -1},
		{name: "major greater", a: "2.0.0", b: "1.0.0", expected: 1},
		{name: "above minimum", a: "2.1.0", b: MinimumVersion, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, compareVersions(tt.a, tt.b))
		})
	}
}

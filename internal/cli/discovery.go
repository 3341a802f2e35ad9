package cli

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wagiedev/claude-pipeline-go/internal/errors"
)

const (
	// MinimumVersion is the oldest CLI release known to emit the stream-json
	// records the normalizer understands.
	MinimumVersion = "2.0.0"

	// VersionCheckTimeout bounds the `claude -v` check.
	VersionCheckTimeout = 2 * time.Second

	// SkipVersionCheckEnv disables the version check when set to any value.
	SkipVersionCheckEnv = "CLAUDEPIPE_SKIP_VERSION_CHECK"
)

var versionPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+)`)

// Discoverer locates the claude executable.
type Discoverer struct {
	// CliPath is an explicit path; when set no other location is tried.
	CliPath string

	// SkipVersionCheck disables the `claude -v` check.
	SkipVersionCheck bool

	// LookPath resolves a command name on $PATH. Defaults to exec.LookPath.
	LookPath func(string) (string, error)

	// CommonPaths are tried after $PATH. Defaults to DefaultCommonPaths().
	CommonPaths []string

	Logger *slog.Logger
}

// DefaultCommonPaths returns the install locations checked after $PATH.
func DefaultCommonPaths() []string {
	paths := []string{"/usr/local/bin/claude", "/usr/bin/claude"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".local", "bin", "claude"),
			filepath.Join(home, ".claude", "local", "claude"),
		)
	}

	return paths
}

// Discover returns the path of the executable, or *errors.CLINotFoundError
// listing every location that was searched.
func (d *Discoverer) Discover(ctx context.Context) (string, error) {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "cli_discovery")

	path, err := d.find(log)
	if err != nil {
		log.Warn("Claude CLI not found", "error", err)

		return "", err
	}

	log.Debug("Found Claude CLI binary", "cli_path", path)

	if !d.SkipVersionCheck && os.Getenv(SkipVersionCheckEnv) == "" {
		d.checkVersion(ctx, log, path)
	}

	return path, nil
}

func (d *Discoverer) find(log *slog.Logger) (string, error) {
	if d.CliPath != "" {
		if _, err := os.Stat(d.CliPath); err != nil {
			return "", &errors.CLINotFoundError{SearchedPaths: []string{d.CliPath}}
		}

		return d.CliPath, nil
	}

	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if path, err := lookPath("claude"); err == nil {
		return path, nil
	}

	searched := []string{"$PATH"}

	common := d.CommonPaths
	if common == nil {
		common = DefaultCommonPaths()
	}

	for _, path := range common {
		searched = append(searched, path)

		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}

		log.Debug("Candidate path missing", "path", path)
	}

	return "", &errors.CLINotFoundError{SearchedPaths: searched}
}

// checkVersion warns when the CLI is older than MinimumVersion.
// Probe failures are ignored.
func (d *Discoverer) checkVersion(ctx context.Context, log *slog.Logger, path string) {
	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-v").Output()
	if err != nil {
		log.Debug("CLI version check failed", "error", err)

		return
	}

	match := versionPattern.FindStringSubmatch(strings.TrimSpace(string(output)))
	if match == nil {
		return
	}

	if compareVersions(match[1], MinimumVersion) < 0 {
		log.Warn("Claude CLI version is older than supported",
			"version", match[1],
			"minimum_required", MinimumVersion,
		)
	}
}

// compareVersions compares two dotted versions numerically.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		var aNum, bNum int

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(aParts[i])
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(bParts[i])
		}

		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		}
	}

	return 0
}

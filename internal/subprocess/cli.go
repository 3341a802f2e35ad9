package subprocess

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/claude-pipeline-go/internal/cli"
	"github.com/wagiedev/claude-pipeline-go/internal/config"
	"github.com/wagiedev/claude-pipeline-go/internal/errors"
)

// maxScanTokenSize is the default ceiling for a single stdout line.
const maxScanTokenSize = 1024 * 1024 // 1MB

var (
	errNotConnected     = stderrors.New("transport is not streaming")
	errAlreadyConnected = stderrors.New("transport already connected")
)

// CLITransport implements config.Transport by spawning one claude process per
// invocation and streaming its stdout records.
type CLITransport struct {
	log     *slog.Logger
	options *config.Options
	prompt  string

	// Discoverer overrides executable lookup. Nil uses a Discoverer built
	// from Options.CliPath.
	Discoverer *cli.Discoverer

	mu        sync.Mutex
	state     State
	receiving bool

	cmd     *exec.Cmd
	stdout  io.ReadCloser
	procCtx context.Context //nolint:containedctx // bounds the process lifetime
	cancel  context.CancelFunc
	group   *errgroup.Group
	stderr  *stderrBuffer

	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
}

// Compile-time verification that CLITransport implements the Transport interface.
var _ config.Transport = (*CLITransport)(nil)

// NewCLITransport creates a transport for a single prompt. Nothing is spawned
// until Connect.
func NewCLITransport(log *slog.Logger, prompt string, options *config.Options) *CLITransport {
	if options == nil {
		options = &config.Options{}
	}

	return &CLITransport{
		log:     log.With("component", "cli_transport"),
		options: options,
		prompt:  prompt,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (t *CLITransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// transition moves to next when the current state is one of from.
func (t *CLITransport) transition(next State, from ...State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.state.canMoveTo(next) {
		return false
	}

	for _, s := range from {
		if t.state == s {
			t.state = next

			return true
		}
	}

	return len(from) == 0
}

// Connect spawns the CLI, writes the prompt to its stdin and closes stdin.
//
// Returns CLINotFoundError when the executable cannot be located,
// CLIConnectionError when the process cannot be started, or
// CancellationError when ctx is already done.
func (t *CLITransport) Connect(ctx context.Context) error {
	if !t.transition(StateConnecting, StateIdle) {
		return &errors.CLIConnectionError{Err: errAlreadyConnected}
	}

	if err := ctx.Err(); err != nil {
		t.transition(StateFailed)

		return &errors.CancellationError{Cause: context.Cause(ctx)}
	}

	cmd, err := t.buildCommand(ctx)
	if err != nil {
		t.transition(StateFailed)

		return err
	}

	if err := t.start(cmd); err != nil {
		t.transition(StateFailed)

		return err
	}

	if !t.transition(StateStreaming, StateConnecting) {
		// Disconnect ran while the process was starting.
		t.cancel()
		_ = t.wait()

		return &errors.CancellationError{Cause: errNotConnected}
	}

	t.log.Info("Claude CLI subprocess started", "pid", cmd.Process.Pid)

	return nil
}

func (t *CLITransport) buildCommand(ctx context.Context) (*exec.Cmd, error) {
	discoverer := t.Discoverer
	if discoverer == nil {
		discoverer = &cli.Discoverer{CliPath: t.options.CliPath, Logger: t.log}
	}

	cliPath, err := discoverer.Discover(ctx)
	if err != nil {
		return nil, err
	}

	args, err := cli.BuildArgs(t.options)
	if err != nil {
		return nil, &errors.CLIConnectionError{Err: err}
	}

	t.log.Debug("Built command arguments", "cli_path", cliPath, "args", args)

	cwd := t.options.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return nil, &errors.CLIConnectionError{Err: fmt.Errorf("get working directory: %w", err)}
		}
	}

	procCtx, cancel := context.WithCancel(ctx)
	if t.options.Timeout > 0 {
		procCtx, cancel = context.WithTimeout(ctx, t.options.Timeout)
	}

	t.mu.Lock()
	t.procCtx, t.cancel = procCtx, cancel
	t.mu.Unlock()

	//nolint:gosec // G204: launching the CLI with dynamic args is the point of this package
	cmd := exec.CommandContext(procCtx, cliPath, args...)
	cmd.Dir = cwd
	cmd.Env = cli.BuildEnvironment(t.options)

	return cmd, nil
}

func (t *CLITransport) start(cmd *exec.Cmd) error {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &errors.CLIConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.CLIConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.CLIConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start CLI process", "error", err)
		t.cancel()

		return &errors.CLIConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdout = stdout
	t.stderr = newStderrBuffer(t.options.Stderr)
	t.group = &errgroup.Group{}
	t.mu.Unlock()

	// Both pipes must be serviced while stdout is read, or a large prompt or
	// chatty stderr can deadlock the child.
	t.group.Go(func() error {
		defer stdin.Close()

		if _, err := io.WriteString(stdin, t.prompt+"\n"); err != nil {
			// The CLI may exit before reading its input; the exit status
			// reports that case.
			if stderrors.Is(err, syscall.EPIPE) || stderrors.Is(err, os.ErrClosed) {
				t.log.Debug("CLI closed stdin before the prompt was written", "error", err)

				return nil
			}

			return fmt.Errorf("write prompt: %w", err)
		}

		return nil
	})

	t.group.Go(func() error {
		t.stderr.drain(stderr)

		return nil
	})

	return nil
}

// ReceiveMessages returns a lazy sequence of decoded stdout records.
//
// Blank lines are skipped. A line that is not a JSON object yields
// CLIJSONDecodeError and ends the sequence. After EOF the process is reaped
// and a non-zero exit yields ProcessError. If ctx (or the process timeout)
// ends the stream, CancellationError is yielded instead.
//
// The sequence can be iterated once.
func (t *CLITransport) ReceiveMessages(ctx context.Context) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		t.mu.Lock()
		state, receiving := t.state, t.receiving
		t.receiving = true
		t.mu.Unlock()

		if receiving {
			yield(nil, errors.ErrStreamConsumed)

			return
		}

		if state != StateStreaming {
			yield(nil, &errors.CLIConnectionError{Err: errNotConnected})

			return
		}

		// Reading blocks on the pipe, so cancellation has to kill the process
		// to unblock it.
		stop := context.AfterFunc(ctx, t.cancel)
		defer stop()

		maxSize := maxScanTokenSize
		if t.options.MaxBufferSize != nil && *t.options.MaxBufferSize > 0 {
			maxSize = *t.options.MaxBufferSize
		}

		scanner := bufio.NewScanner(t.stdout)
		scanner.Buffer(make([]byte, 0, min(64*1024, maxSize)), maxSize)

		count := 0

		for scanner.Scan() {
			if ctx.Err() != nil {
				break
			}

			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var raw map[string]any
			if err := json.Unmarshal(line, &raw); err != nil {
				t.log.Debug("Failed to decode CLI output line", "error", err, "line", string(line))
				t.transition(StateFailed, StateStreaming)

				yield(nil, &errors.CLIJSONDecodeError{RawData: string(line), Err: err})

				return
			}

			count++
			t.log.Debug("Received record from CLI", "record_count", count, "type", raw["type"])

			if !yield(raw, nil) {
				return
			}
		}

		if err := t.finish(ctx, scanner.Err(), maxSize); err != nil {
			t.transition(StateFailed, StateStreaming)
			yield(nil, err)

			return
		}

		t.transition(StateClosed, StateStreaming)
		t.log.Info("CLI process exited successfully", "record_count", count)
	}
}

// finish reaps the process after stdout ends and picks the error to report.
func (t *CLITransport) finish(ctx context.Context, scanErr error, maxSize int) error {
	if stderrors.Is(scanErr, bufio.ErrTooLong) {
		t.cancel()
		_ = t.wait()

		return &errors.CLIJSONDecodeError{
			Err: fmt.Errorf("output line exceeds %d bytes: %w", maxSize, scanErr),
		}
	}

	waitErr := t.wait()

	switch {
	case ctx.Err() != nil:
		return &errors.CancellationError{Cause: context.Cause(ctx)}
	case t.procCtx.Err() != nil && waitErr != nil:
		return &errors.CancellationError{Cause: context.Cause(t.procCtx)}
	case waitErr != nil:
		return waitErr
	case scanErr != nil:
		return &errors.CLIConnectionError{Err: fmt.Errorf("read stdout: %w", scanErr)}
	default:
		return nil
	}
}

// wait reaps the process exactly once.
func (t *CLITransport) wait() error {
	t.waitOnce.Do(func() {
		groupErr := t.group.Wait()
		exitErr := t.cmd.Wait()

		if exitErr != nil {
			stderr := cleanStderr(t.stderr.String())
			procErr := &errors.ProcessError{ExitCode: -1, Stderr: stderr, Err: exitErr}

			if ee, ok := stderrors.AsType[*exec.ExitError](exitErr); ok {
				procErr.ExitCode = ee.ExitCode()

				if stderr != "" {
					procErr.Err = nil
				}
			}

			t.log.Error("CLI process exited with error", "exit_code", procErr.ExitCode, "stderr", stderr)
			t.waitErr = procErr

			return
		}

		if groupErr != nil {
			t.waitErr = &errors.CLIConnectionError{Err: groupErr}
		}
	})

	return t.waitErr
}

// Disconnect kills the process if it is still running, waits for the pipe
// goroutines and reaps it. Only the first call does any work; the exit status
// of a process killed here is not reported.
func (t *CLITransport) Disconnect() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		prev := t.state
		t.state = StateClosed
		cmd, cancel := t.cmd, t.cancel
		t.mu.Unlock()

		if cancel != nil {
			cancel()
		}

		if cmd == nil {
			return
		}

		t.log.Debug("Disconnecting CLI transport", "pid", cmd.Process.Pid, "state", prev)

		_ = t.wait()
	})

	return nil
}

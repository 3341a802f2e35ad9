package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	claudepipe "github.com/wagiedev/claude-pipeline-go"
)

var version = "dev"

type flags struct {
	configFile string
	model      string
	cliPath    string
	jsonOut    bool
	stream     bool
	session    string
	sessionDB  string
	trace      bool
	verbose    bool
	timeout    time.Duration
	redact     bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "claudepipe [flags] <prompt>",
		Short:         "Run a prompt through the Claude CLI pipeline",
		Long:          `claudepipe sends a prompt to the Claude CLI, runs it through logging, token counting and optional tracing interceptors, and prints the answer. The prompt is read from stdin when no argument is given.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), f, args)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			}

			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configFile, "config", "c", "", "YAML config file (CLAUDEPIPE_* environment variables override it)")
	fl.StringVarP(&f.model, "model", "m", "", "model id or alias")
	fl.StringVar(&f.cliPath, "cli-path", "", "path to the claude binary")
	fl.BoolVar(&f.jsonOut, "json", false, "print the answer as extracted JSON")
	fl.BoolVar(&f.stream, "stream", false, "print assistant text as it arrives")
	fl.StringVar(&f.session, "session", "", "continue the named session")
	fl.StringVar(&f.sessionDB, "session-db", "", "SQLite file storing named sessions (default: claudepipe/sessions.db in the user cache dir)")
	fl.BoolVar(&f.trace, "trace", false, "write OpenTelemetry spans to stderr")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging to stderr")
	fl.DurationVar(&f.timeout, "timeout", 0, "limit for the whole query (0 for none)")
	fl.BoolVar(&f.redact, "redact", false, "strip API keys and email addresses from the prompt")

	return cmd
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, f flags, args []string) error {
	prompt, err := readPrompt(stdin, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if f.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	fileCfg, err := claudepipe.LoadConfig(f.configFile)
	if err != nil {
		return err
	}

	counter, err := claudepipe.NewTokenCounter()
	if err != nil {
		return err
	}

	interceptors := []claudepipe.Interceptor{claudepipe.LoggingInterceptor(log)}

	if f.trace {
		provider, err := newTracerProvider(stderr)
		if err != nil {
			return err
		}

		defer func() { _ = provider.Shutdown(context.WithoutCancel(ctx)) }()

		interceptors = append(interceptors, claudepipe.TracingInterceptor(provider.Tracer("claudepipe")))
	}

	if f.redact {
		interceptors = append(interceptors, claudepipe.RedactInterceptor())
	}

	interceptors = append(interceptors, claudepipe.TokenCountInterceptor(counter))

	opts := []claudepipe.Option{
		claudepipe.WithLogger(log),
		claudepipe.WithFileConfig(fileCfg),
		claudepipe.WithInterceptors(interceptors...),
	}

	if f.model != "" {
		opts = append(opts, claudepipe.WithModel(f.model))
	}

	if f.cliPath != "" {
		opts = append(opts, claudepipe.WithCliPath(f.cliPath))
	}

	resp, closeStore, err := query(ctx, f, prompt, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	return printResponse(stdout, resp, f)
}

// query runs prompt, inside a stored session when one is named.
func query(ctx context.Context, f flags, prompt string, opts []claudepipe.Option) (*claudepipe.Response, func(), error) {
	if f.session == "" {
		return claudepipe.Query(ctx, prompt, opts...), func() {}, nil
	}

	path, err := sessionDBPath(f)
	if err != nil {
		return nil, nil, err
	}

	store, err := claudepipe.OpenSQLiteSessionStore(path)
	if err != nil {
		return nil, nil, err
	}

	s := claudepipe.NewSession(append(opts, claudepipe.WithSessionStore(store, f.session))...)

	return s.Query(ctx, prompt), func() { _ = store.Close() }, nil
}

// sessionDBPath returns --session-db, or a file in the user cache
// directory so named sessions outlive the process.
func sessionDBPath(f flags) (string, error) {
	if f.sessionDB != "" {
		return f.sessionDB, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate session store (set --session-db): %w", err)
	}

	dir = filepath.Join(dir, "claudepipe")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create session store directory: %w", err)
	}

	return filepath.Join(dir, "sessions.db"), nil
}

func printResponse(w io.Writer, resp *claudepipe.Response, f flags) error {
	if f.stream {
		err := resp.Stream(func(msg claudepipe.Message) error {
			if m, ok := msg.(*claudepipe.AssistantMessage); ok {
				for _, block := range m.Content {
					if text, ok := block.(*claudepipe.TextBlock); ok {
						fmt.Fprint(w, text.Text)
					}
				}
			}

			return nil
		})
		fmt.Fprintln(w)

		if err != nil {
			return err
		}
	}

	if f.jsonOut {
		v, err := resp.JSON()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	}

	if !f.stream {
		text, err := resp.Text()
		if err != nil {
			return err
		}

		if text == "" {
			if text, err = resp.Result(); err != nil {
				return err
			}
		}

		fmt.Fprintln(w, text)
	}

	if f.verbose {
		usage, err := resp.Usage()
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "\nsession %s  tokens in=%d out=%d  cost $%.4f\n",
			resp.SessionID(), usage.InputTokens, usage.OutputTokens, usage.TotalCostUSD)
	}

	return nil
}

func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no prompt given")
	}

	return prompt, nil
}

func newTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)), nil
}

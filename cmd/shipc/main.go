package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/clog/slag"
	charmlog "github.com/charmbracelet/log"
	"github.com/joshrwolf/shipc/internal/config"
	"github.com/joshrwolf/shipc/internal/fault"
	"github.com/joshrwolf/shipc/internal/pipeline"
	"github.com/joshrwolf/shipc/internal/volume"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Exit code when no container exit code is available: the pipeline failed or
// the container was killed by a signal.
const exitFailure = 255

var version = "(devel)"

type options struct {
	logLevel   slag.Level
	configPath string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Exit code of the run, nil when the container was killed by a signal.
	// Stays 0 for commands that run nothing.
	exitCode *int
}

var errNoCommand = errors.New("a command is required")

type runOptions struct {
	rootless bool
	volumes  volume.List
	test     bool
}

// setupLogging configures logging for the command
func (o *options) setupLogging(ctx context.Context, w io.Writer) context.Context {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(o.logLevel),
		ReportTimestamp: !isTerminal(w),
	})
	ctx = clog.WithLogger(ctx, clog.New(l))
	slog.SetDefault(slog.New(l))
	return ctx
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func main() {
	// Interrupts end the staging tools but leave shipc alive to clean up its
	// workspace.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute runs shipc with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &options{stdin: stdin, stdout: stdout, stderr: stderr, exitCode: new(int)}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		report(stderr, err)
		return exitFailure
	}
	if opts.exitCode == nil {
		return exitFailure
	}
	return *opts.exitCode
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shipc",
		Short:         "Unpack and run OCI images",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(opts.setupLogging(cmd.Context(), opts.stderr))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
			return errNoCommand
		},
	}
	rootCmd.SetIn(opts.stdin)
	rootCmd.SetOut(opts.stdout)
	rootCmd.SetErr(opts.stderr)

	rootCmd.PersistentFlags().Var(&opts.logLevel, "log-level", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $"+config.EnvConfig+" or $XDG_CONFIG_HOME/shipc/config.yaml)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return rootCmd
}

func newRunCmd(opts *options) *cobra.Command {
	ro := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run IMAGE",
		Short: "Run an OCI image",
		Long: `Run an OCI image.

IMAGE is an OCI image layout directory or a .tar.gz archive of one. The image
is unpacked into a temporary bundle, given a random hostname and the requested
volumes, and run with runc. shipc exits with the container's exit code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fault.User("invalid configuration", err)
			}
			clog.FromContext(ctx).Debug("configuration", "tools", cfg.Tools, "temp-dir", cfg.TempDir)

			p := pipeline.New(pipeline.Options{
				Config: cfg,
				Stdin:  opts.stdin,
				Stdout: opts.stdout,
				Stderr: opts.stderr,
			})
			code, err := p.Run(ctx, pipeline.Request{
				Image:    args[0],
				Rootless: ro.rootless,
				Volumes:  ro.volumes,
				Test:     ro.test,
			})
			if err != nil {
				return err
			}
			opts.exitCode = code
			return nil
		},
	}

	cmd.Flags().BoolVar(&ro.rootless, "rootless", false, "Run in rootless mode")
	cmd.Flags().VarP(&ro.volumes, "volume", "v", "Bind mount a host path, as ORIGIN:DESTINATION (repeatable)")
	cmd.Flags().BoolVar(&ro.test, "test", false, "Stage the bundle and wait for a line on stdin instead of running it")
	_ = cmd.Flags().MarkHidden("test")

	return cmd
}

// report writes err to w. User mistakes get a pointer to the usage text.
func report(w io.Writer, err error) {
	e, ok := fault.As(err)
	if !ok {
		// Flag and argument errors from cobra.
		fmt.Fprintf(w, "error: %v\n", err)
		fmt.Fprintln(w, "error: Run with --help for usage")
		return
	}

	fmt.Fprintf(w, "error: %s\n", e.Message)
	if e.Detail != "" {
		fmt.Fprintf(w, "error: %s\n", e.Detail)
	}
	if fault.IsUser(err) {
		fmt.Fprintln(w, "error: Run with --help for usage")
	}
}

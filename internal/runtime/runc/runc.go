// Package runc runs bundles with the runc low-level runtime.
package runc

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/chainguard-dev/clog"
	"github.com/joshrwolf/shipc/internal/fault"
	"github.com/joshrwolf/shipc/internal/runtime"
	"github.com/moby/sys/userns"
)

// Runc runtime implementation
type Runc struct {
	// Path to runc binary (default: "runc")
	runcPath string
}

// New creates a new runc runtime
func New(runcPath string) *Runc {
	if runcPath == "" {
		runcPath = "runc"
	}
	return &Runc{runcPath: runcPath}
}

// Run implements runtime.Runtime
//
// runc runs in the foreground with the bundle as its working directory and
// the caller's stdio. The context is not used to stop it: interrupts from the
// terminal reach the container directly.
func (r *Runc) Run(ctx context.Context, opts runtime.RunOptions) (*int, error) {
	log := clog.FromContext(ctx)

	if opts.StateRoot == "" && os.Geteuid() != 0 && !userns.RunningInUserNS() {
		log.Warn("running unprivileged without --rootless, runc will likely fail")
	}

	args := r.buildRunArgs(opts)

	cmd := exec.Command(r.runcPath, args...)
	cmd.Dir = opts.Bundle

	// Set up IO
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	} else {
		cmd.Stdin = os.Stdin
	}

	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	} else {
		cmd.Stdout = os.Stdout
	}

	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	log.Debug("running container", "runtime", r.runcPath, "args", args, "bundle", opts.Bundle)
	err := cmd.Run()
	if err == nil {
		code := 0
		return &code, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, fault.Internal("failed to start the container", err)
	}

	code := exitErr.ExitCode()
	if code < 0 {
		log.Warn("container terminated by signal", "name", opts.Name, "state", exitErr.String())
		return nil, nil
	}
	log.Debug("container exited", "name", opts.Name, "code", code)
	return &code, nil
}

// buildRunArgs builds the runc arguments
func (r *Runc) buildRunArgs(opts runtime.RunOptions) []string {
	var args []string

	// Global flags come before the subcommand
	if opts.StateRoot != "" {
		args = append(args, "--root", opts.StateRoot)
	}

	return append(args, "run", opts.Name)
}

// String returns the runtime name
func (r *Runc) String() string {
	return "runc"
}

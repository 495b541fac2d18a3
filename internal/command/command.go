// Package command runs the external tools shipc delegates to and classifies
// how they ended.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/joshrwolf/shipc/internal/fault"
)

// Cmd describes one invocation of an external tool.
type Cmd struct {
	// Path to the binary, looked up in PATH when it has no separator.
	Path string

	// Arguments, not including the binary itself.
	Args []string

	// Working directory (default: the current directory)
	Dir string
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Run executes c and waits for it to finish.
//
// A tool that cannot be started at all yields an internal error. A tool that
// runs and exits non-zero yields a user error carrying failure as its message
// and the tool's stderr as its detail. Success returns nil.
func Run(ctx context.Context, c Cmd, failure string) error {
	log := clog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("running tool", "cmd", c.String(), "dir", c.Dir)
	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		log.Debug("tool output", "tool", c.Path, "output", out)
	}
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = exitErr.Error()
		}
		return fault.UserDetail(failure, detail)
	}
	return fault.Internal(fmt.Sprintf("cannot run %s", c.Path), err)
}

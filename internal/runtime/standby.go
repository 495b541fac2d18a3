package runtime

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/joshrwolf/shipc/internal/fault"
)

// Standby is the test-mode runtime. It never starts a container: it waits for
// one line on stdin, so a harness can inspect the staged bundle, then reports
// success.
type Standby struct{}

// Run implements Runtime
func (Standby) Run(ctx context.Context, opts RunOptions) (*int, error) {
	log := clog.FromContext(ctx)

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}

	log.Info("test mode: container staged, waiting for input", "bundle", opts.Bundle, "name", opts.Name)
	if _, err := bufio.NewReader(stdin).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return nil, fault.Internal("cannot read from standard input", err)
	}

	code := 0
	return &code, nil
}

// String returns the runtime name
func (Standby) String() string {
	return "standby"
}

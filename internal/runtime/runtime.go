package runtime

import (
	"context"
	"io"
)

// Runtime runs a container from an unpacked bundle
type Runtime interface {
	// Run starts the container and waits for it to exit. It returns the
	// container's exit code, or nil when the container was killed by a signal.
	Run(ctx context.Context, opts RunOptions) (*int, error)
}

// RunOptions configures how to run the container
type RunOptions struct {
	// Path to the bundle directory
	Bundle string

	// Container instance name
	Name string

	// Alternate runtime state directory (default: the runtime's own)
	StateRoot string

	// Stdin/stdout/stderr (optional, defaults to os.Std*)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

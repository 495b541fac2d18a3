// Package pipeline stages an image into a bundle and runs it.
//
// A run goes through each stage in order, each finishing before the next
// begins:
//
//	workspace -> resolve image -> unpack bundle -> name -> edit spec -> launch
//
// The first failing stage ends the run. The workspace is removed on every
// exit path.
package pipeline

import (
	"context"
	"io"

	"github.com/chainguard-dev/clog"
	"github.com/joshrwolf/shipc/internal/bundle"
	"github.com/joshrwolf/shipc/internal/config"
	"github.com/joshrwolf/shipc/internal/identity"
	"github.com/joshrwolf/shipc/internal/image"
	"github.com/joshrwolf/shipc/internal/runspec"
	"github.com/joshrwolf/shipc/internal/runtime"
	"github.com/joshrwolf/shipc/internal/runtime/runc"
	"github.com/joshrwolf/shipc/internal/volume"
	"github.com/joshrwolf/shipc/internal/workspace"
)

// Request is one run of an image.
type Request struct {
	// Path to an image layout directory or a .tar.gz archive of one
	Image string

	// Unpack and run without host privileges
	Rootless bool

	// Bind mounts to add, in order
	Volumes []volume.Volume

	// Stage everything but wait for input instead of starting the container
	Test bool
}

// Options configures a Pipeline.
type Options struct {
	// Tool paths and temp root (default: config.Default())
	Config *config.Config

	// Random source for container names (default: crypto/rand)
	Rand io.Reader

	// Stdin/stdout/stderr handed to the runtime (optional, defaults to os.Std*)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Pipeline runs images.
type Pipeline struct {
	tempDir  string
	resolver *image.Resolver
	unpacker *bundle.Unpacker
	names    *identity.Generator
	runtime  runtime.Runtime
	standby  runtime.Runtime
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &Pipeline{
		tempDir:  cfg.TempDir,
		resolver: image.NewResolver(cfg.Tools.Tar),
		unpacker: bundle.NewUnpacker(cfg.Tools.Umoci),
		names:    identity.NewGenerator(opts.Rand),
		runtime:  runc.New(cfg.Tools.Runc),
		standby:  runtime.Standby{},
		stdin:    opts.Stdin,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
	}
}

// Run stages req.Image and runs it. It returns the container's exit code, or
// nil when the container was killed by a signal.
func (p *Pipeline) Run(ctx context.Context, req Request) (*int, error) {
	log := clog.FromContext(ctx)

	ws, err := workspace.Acquire(p.tempDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			log.Warn("cannot remove temporary directory", "path", ws.Path(), "error", err)
		}
	}()

	log.Info("temporary directory", "path", ws.Path())
	log.Info("running image", "image", req.Image, "rootless", req.Rootless)
	for _, v := range req.Volumes {
		log.Info("with volume", "volume", v.String())
	}

	src, err := p.resolver.Resolve(ctx, req.Image, ws)
	if err != nil {
		return nil, err
	}
	log.Debug("resolved image", "kind", src.Kind, "dir", src.Dir)

	b, err := p.unpacker.Unpack(ctx, src.Dir, ws, req.Rootless)
	if err != nil {
		return nil, err
	}
	log.Debug("unpacked bundle", "spec", b.SpecPath(), "rootfs", b.RootFSPath())

	name := p.names.Generate()
	log.Info("container name", "name", name)

	if err := runspec.Mutate(b.SpecPath(), name, req.Volumes); err != nil {
		return nil, err
	}

	opts := runtime.RunOptions{
		Bundle: b.Root,
		Name:   name,
		Stdin:  p.stdin,
		Stdout: p.stdout,
		Stderr: p.stderr,
	}
	if req.Rootless {
		if opts.StateRoot, err = ws.Subpath("root"); err != nil {
			return nil, err
		}
	}

	rt := p.runtime
	if req.Test {
		rt = p.standby
	}
	log.Debug("launching", "runtime", rt, "state-root", opts.StateRoot)
	return rt.Run(ctx, opts)
}

// Package bundle materializes an OCI runtime bundle from an image layout using
// umoci.
package bundle

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	"github.com/joshrwolf/shipc/internal/command"
	"github.com/joshrwolf/shipc/internal/fault"
	"github.com/joshrwolf/shipc/internal/workspace"
	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	// Name of the bundle directory inside the workspace.
	dirName = "bundle"

	// SpecFile is the runtime specification document at the bundle root.
	SpecFile = "config.json"

	// RootFS is the root filesystem directory at the bundle root.
	RootFS = "rootfs"

	// Tag umoci picks when none is given.
	defaultTag = "latest"
)

// Bundle is an unpacked runtime bundle. It lives inside a workspace and must
// not be used once that workspace is closed.
type Bundle struct {
	Root string
}

// SpecPath returns the path of the runtime specification document.
func (b *Bundle) SpecPath() string {
	return filepath.Join(b.Root, SpecFile)
}

// RootFSPath returns the path of the root filesystem.
func (b *Bundle) RootFSPath() string {
	return filepath.Join(b.Root, RootFS)
}

// Unpacker turns image layouts into bundles.
type Unpacker struct {
	// Path to the umoci binary (default: "umoci")
	umociPath string
}

// NewUnpacker creates an Unpacker running the given umoci binary.
func NewUnpacker(umociPath string) *Unpacker {
	if umociPath == "" {
		umociPath = "umoci"
	}
	return &Unpacker{umociPath: umociPath}
}

// Unpack unpacks the image layout at imageDir into the workspace's bundle
// directory.
func (u *Unpacker) Unpack(ctx context.Context, imageDir string, ws *workspace.Workspace, rootless bool) (*Bundle, error) {
	log := clog.FromContext(ctx)

	ref := imageRef(ctx, imageDir)
	log.Info("unpacking image", "image", ref, "rootless", rootless)

	args := []string{"unpack"}
	if rootless {
		args = append(args, "--rootless")
	}
	args = append(args, "--image", ref, dirName)

	if err := command.Run(ctx, command.Cmd{
		Path: u.umociPath,
		Args: args,
		Dir:  ws.Path(),
	}, "failed to unpack image"); err != nil {
		return nil, err
	}

	b := &Bundle{Root: filepath.Join(ws.Path(), dirName)}
	if _, err := os.Stat(b.SpecPath()); err != nil {
		return nil, fault.Internal("invalid bundle", err)
	}
	return b, nil
}

// imageRef returns the umoci image argument for dir. When dir is a readable
// OCI layout whose index names its manifests, the "latest" name is chosen if
// present, otherwise the first one. Anything else is passed as the bare
// directory and left for umoci to judge.
func imageRef(ctx context.Context, dir string) string {
	log := clog.FromContext(ctx)

	p, err := layout.FromPath(dir)
	if err != nil {
		log.Debug("not reading image layout", "dir", dir, "error", err)
		return dir
	}
	idx, err := p.ImageIndex()
	if err != nil {
		log.Debug("not reading image index", "dir", dir, "error", err)
		return dir
	}
	manifest, err := idx.IndexManifest()
	if err != nil {
		log.Debug("not reading image index", "dir", dir, "error", err)
		return dir
	}

	var tags []string
	for _, desc := range manifest.Manifests {
		if tag := desc.Annotations[imgspecv1.AnnotationRefName]; tag != "" {
			tags = append(tags, tag)
		}
	}
	log.Debug("image layout tags", "dir", dir, "tags", tags)

	switch {
	case len(tags) == 0:
		return dir
	case slices.Contains(tags, defaultTag):
		return dir + ":" + defaultTag
	default:
		return dir + ":" + tags[0]
	}
}


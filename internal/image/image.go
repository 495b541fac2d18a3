// Package image resolves the image argument of a run into a directory holding
// an OCI image layout, extracting it first when it is a compressed archive.
package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/joshrwolf/shipc/internal/command"
	"github.com/joshrwolf/shipc/internal/fault"
	"github.com/joshrwolf/shipc/internal/workspace"
)

// ArchiveSuffix is the only archive name suffix accepted.
const ArchiveSuffix = ".tar.gz"

// Kind is the form an image was given in.
type Kind int

const (
	Directory Kind = iota + 1
	Archive
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case Archive:
		return "archive"
	default:
		return "unknown"
	}
}

// Source is a resolved image.
type Source struct {
	// Form the image was given in
	Kind Kind

	// Canonical path of the image argument
	Path string

	// Directory holding the image layout, ready to unpack
	Dir string
}

// Resolver turns an image argument into an image directory.
type Resolver struct {
	// Path to the tar binary (default: "tar")
	tarPath string
}

// NewResolver creates a Resolver extracting archives with the given tar
// binary.
func NewResolver(tarPath string) *Resolver {
	if tarPath == "" {
		tarPath = "tar"
	}
	return &Resolver{tarPath: tarPath}
}

// Resolve classifies imagePath and returns the directory to unpack from.
// Archives are extracted into the workspace's image directory.
func (r *Resolver) Resolve(ctx context.Context, imagePath string, ws *workspace.Workspace) (*Source, error) {
	log := clog.FromContext(ctx)

	path, err := canonical(imagePath)
	if err != nil {
		return nil, fault.User("invalid image path", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fault.User("invalid image path", err)
	}

	switch {
	case info.Mode().IsRegular():
		// The name given decides, so a link named *.tar.gz may point at a
		// content-addressed blob.
		if !strings.HasSuffix(filepath.Base(imagePath), ArchiveSuffix) {
			return nil, fault.User("file is not a tarball", nil)
		}
		dir, err := ws.Subpath("image")
		if err != nil {
			return nil, err
		}
		log.Info("uncompressing image", "archive", path, "dir", dir)
		if err := r.extract(ctx, path, dir); err != nil {
			return nil, err
		}
		return &Source{Kind: Archive, Path: path, Dir: dir}, nil

	case info.IsDir():
		return &Source{Kind: Directory, Path: path, Dir: path}, nil

	default:
		return nil, fault.UserDetail("image is neither a directory nor a tarball", fmt.Sprintf("%s has mode %s", path, info.Mode().Type()))
	}
}

// extract unpacks archive into dir, dropping the archive's top-level
// directory.
func (r *Resolver) extract(ctx context.Context, archive, dir string) error {
	return command.Run(ctx, command.Cmd{
		Path: r.tarPath,
		Args: []string{"-C", dir, "--strip-components=1", "-xf", archive},
	}, "failed to un-tar image")
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

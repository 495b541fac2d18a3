// Package workspace manages the scoped temporary directory a single shipc run
// stages its image and bundle in.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joshrwolf/shipc/internal/fault"
)

// Prefix of every workspace directory name.
const prefix = "shipc"

// Workspace is an exclusively-owned temporary directory. Callers must Close it
// when the run ends; Close removes everything under it.
type Workspace struct {
	path string
}

// Acquire creates a fresh, uniquely named directory under root. An empty root
// means the system temp directory.
func Acquire(root string) (*Workspace, error) {
	path, err := os.MkdirTemp(root, prefix)
	if err != nil {
		return nil, fault.Internal("cannot create temporary directory", err)
	}
	return &Workspace{path: path}, nil
}

// Path returns the workspace root.
func (w *Workspace) Path() string {
	return w.path
}

// Subpath returns the named directory under the workspace, creating it on
// first use.
func (w *Workspace) Subpath(name string) (string, error) {
	p := filepath.Join(w.path, name)
	err := os.Mkdir(p, 0o755)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return "", fault.Internal("internal error", err)
	}
	if info, err := os.Stat(p); err != nil || !info.IsDir() {
		return "", fault.Internal("internal error", fmt.Errorf("%s is not a directory", p))
	}
	return p, nil
}

// Close removes the workspace and its contents. It is safe to call more than
// once.
func (w *Workspace) Close() error {
	if w == nil || w.path == "" {
		return nil
	}
	return os.RemoveAll(w.path)
}

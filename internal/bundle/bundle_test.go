package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joshrwolf/shipc/internal/fault"
	"github.com/joshrwolf/shipc/internal/workspace"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

// fakeUmoci records its arguments and creates a minimal bundle in the last
// argument.
const fakeUmoci = `#!/bin/sh
echo "$@" > %q
for last; do :; done
mkdir -p "$last/rootfs"
echo '{"hostname": "", "mounts": []}' > "$last/config.json"
`

const digest = "sha256:6c3c624b58dbbcd3c0dd82b4c53f04194d1247c6eebdaab7c610cf7d66709b3b"

func TestUnpack(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		index    string
		rootless bool
		wantRef  func(dir string) string
		wantFlag bool
	}{
		{
			name:    "plain directory",
			wantRef: func(dir string) string { return dir },
		},
		{
			name:     "rootless",
			rootless: true,
			wantRef:  func(dir string) string { return dir },
			wantFlag: true,
		},
		{
			name:    "index without names",
			index:   index(""),
			wantRef: func(dir string) string { return dir },
		},
		{
			name:    "single name",
			index:   index("3.20"),
			wantRef: func(dir string) string { return dir + ":3.20" },
		},
		{
			name:    "latest preferred",
			index:   index("edge", "latest"),
			wantRef: func(dir string) string { return dir + ":latest" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argsFile := filepath.Join(t.TempDir(), "args")
			tools := fs.NewDir(t, "tools",
				fs.WithFile("umoci", fmt.Sprintf(fakeUmoci, argsFile), fs.WithMode(0o755)),
			)
			ops := []fs.PathOp{fs.WithFile("oci-layout", `{"imageLayoutVersion":"1.0.0"}`)}
			if tt.index != "" {
				ops = append(ops, fs.WithFile("index.json", tt.index))
			}
			image := fs.NewDir(t, "image", ops...)
			ws := newWorkspace(t)

			b, err := NewUnpacker(tools.Join("umoci")).Unpack(ctx, image.Path(), ws, tt.rootless)
			assert.NilError(t, err)
			assert.Equal(t, b.Root, filepath.Join(ws.Path(), "bundle"))
			assert.Equal(t, b.SpecPath(), filepath.Join(ws.Path(), "bundle", "config.json"))
			assert.Equal(t, b.RootFSPath(), filepath.Join(ws.Path(), "bundle", "rootfs"))

			args, err := os.ReadFile(argsFile)
			assert.NilError(t, err)
			want := []string{"unpack"}
			if tt.wantFlag {
				want = append(want, "--rootless")
			}
			want = append(want, "--image", tt.wantRef(image.Path()), "bundle")
			assert.Equal(t, strings.TrimSpace(string(args)), strings.Join(want, " "))
		})
	}
}

func TestUnpackErrors(t *testing.T) {
	ctx := context.Background()

	tools := fs.NewDir(t, "tools",
		fs.WithFile("umoci-fail", "#!/bin/sh\necho 'image not found' >&2\nexit 1\n", fs.WithMode(0o755)),
		fs.WithFile("umoci-empty", "#!/bin/sh\nfor last; do :; done\nmkdir -p \"$last\"\n", fs.WithMode(0o755)),
	)
	image := fs.NewDir(t, "image")

	tests := []struct {
		name       string
		umoci      string
		wantKind   fault.Kind
		wantMsg    string
		wantDetail string
	}{
		{
			name:       "tool reports failure",
			umoci:      tools.Join("umoci-fail"),
			wantKind:   fault.KindUser,
			wantMsg:    "failed to unpack image",
			wantDetail: "image not found",
		},
		{
			name:     "tool missing",
			umoci:    tools.Join("nope"),
			wantKind: fault.KindInternal,
		},
		{
			name:     "bundle without spec",
			umoci:    tools.Join("umoci-empty"),
			wantKind: fault.KindInternal,
			wantMsg:  "invalid bundle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUnpacker(tt.umoci).Unpack(ctx, image.Path(), newWorkspace(t), false)
			e, ok := fault.As(err)
			assert.Assert(t, ok, "got %v", err)
			assert.Equal(t, e.Kind, tt.wantKind)
			if tt.wantMsg != "" {
				assert.Equal(t, e.Message, tt.wantMsg)
			}
			if tt.wantDetail != "" {
				assert.Equal(t, e.Detail, tt.wantDetail)
			}
		})
	}
}

func index(names ...string) string {
	var manifests []string
	for _, n := range names {
		annotations := ""
		if n != "" {
			annotations = fmt.Sprintf(`, "annotations": {"org.opencontainers.image.ref.name": %q}`, n)
		}
		manifests = append(manifests, fmt.Sprintf(
			`{"mediaType": "application/vnd.oci.image.manifest.v1+json", "digest": %q, "size": 407%s}`,
			digest, annotations))
	}
	return fmt.Sprintf(`{"schemaVersion": 2, "manifests": [%s]}`, strings.Join(manifests, ", "))
}

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Acquire(t.TempDir())
	assert.NilError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

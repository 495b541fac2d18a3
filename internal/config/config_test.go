package config

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/fs"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Config
		wantErr string
	}{
		{
			name:    "empty file keeps defaults",
			content: "",
			want:    Default(),
		},
		{
			name: "partial override",
			content: `tools:
  runc: /usr/local/sbin/runc
tempDir: /var/tmp
`,
			want: &Config{
				Tools:   Tools{Tar: "tar", Umoci: "umoci", Runc: "/usr/local/sbin/runc"},
				TempDir: "/var/tmp",
			},
		},
		{
			name:    "unknown key",
			content: "tools:\n  docker: docker\n",
			wantErr: "field docker not found",
		},
		{
			name:    "empty tool",
			content: "tools:\n  umoci: \"\"\n",
			wantErr: "tools.umoci must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := fs.NewDir(t, "config", fs.WithFile("config.yaml", tt.content))

			cfg, err := Load(dir.Join("config.yaml"))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NilError(t, err)
			assert.DeepEqual(t, cfg, tt.want)
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestLocateFromEnv(t *testing.T) {
	dir := fs.NewDir(t, "config", fs.WithFile("shipc.yaml", "tools:\n  tar: gtar\n"))
	t.Setenv(EnvConfig, dir.Join("shipc.yaml"))

	assert.Equal(t, Locate(), dir.Join("shipc.yaml"))

	cfg, err := Load("")
	assert.NilError(t, err)
	assert.Equal(t, cfg.Tools.Tar, "gtar")
	assert.Equal(t, cfg.Tools.Runc, "runc")
}

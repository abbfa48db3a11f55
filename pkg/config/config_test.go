package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scope-plugin/pkg/config"
)

func newCmd(t *testing.T) *cobra.Command {
	t.Helper()
	def := config.NewDefaultConfig()
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.StringP("config", "c", "", "")
	f.String("plugin.id", def.Plugin.ID, "")
	f.String("socket.dir", def.Socket.Dir, "")
	f.Duration("server.shutdown-timeout", def.Server.ShutdownTimeout, "")
	f.Int("log.max-size", def.Log.MaxSize, "")
	return cmd
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/var/run/scope/plugins/volume-count.sock", cfg.SocketPath())
}

func TestSocketPathOverride(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Socket.Path = "/tmp/custom.sock"
	assert.Equal(t, "/tmp/custom.sock", cfg.SocketPath())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"empty id", func(c *config.Config) { c.Plugin.ID = "" }},
		{"id with slash", func(c *config.Config) { c.Plugin.ID = "a/b" }},
		{"dot id", func(c *config.Config) { c.Plugin.ID = ".." }},
		{"padded id", func(c *config.Config) { c.Plugin.ID = " x" }},
		{"empty label", func(c *config.Config) { c.Plugin.Label = "" }},
		{"socket too long", func(c *config.Config) { c.Socket.Dir = "/" + strings.Repeat("d", 120) }},
		{"metrics without socket", func(c *config.Config) { c.Metrics.Enable = true }},
		{"metrics on plugin socket", func(c *config.Config) {
			c.Metrics.Enable = true
			c.Metrics.Socket = c.SocketPath()
		}},
		{"negative priority", func(c *config.Config) { c.Report.Priority = -1 }},
		{"bad log level", func(c *config.Config) { c.Log.Level = "trace" }},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }},
		{"zero shutdown timeout", func(c *config.Config) { c.Server.ShutdownTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigWithCli_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plugin.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
plugin:
  id: from-file
  label: File Label
socket:
  dir: /run/from-file
log:
  max-size: 5
`), 0o644))

	cmd := newCmd(t)
	require.NoError(t, cmd.Flags().Parse([]string{"-c", file, "--plugin.id", "from-flag", "--server.shutdown-timeout", "2s"}))

	cfg, err := config.LoadConfigWithCli(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Plugin.ID)
	assert.Equal(t, "File Label", cfg.Plugin.Label)
	assert.Equal(t, "/run/from-file", cfg.Socket.Dir)
	assert.Equal(t, 5, cfg.Log.MaxSize)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/run/from-file/from-flag.sock", cfg.SocketPath())
}

func TestLoadConfigWithCli_Env(t *testing.T) {
	t.Setenv("SCOPE_PLUGIN_SOCKET_DIR", "/run/from-env")
	t.Setenv("SCOPE_PLUGIN_LOG_MAX_SIZE", "9")

	cmd := newCmd(t)
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg, err := config.LoadConfigWithCli(cmd)
	require.NoError(t, err)
	assert.Equal(t, "/run/from-env", cfg.Socket.Dir)
	assert.Equal(t, 9, cfg.Log.MaxSize)
	assert.Equal(t, "volume-count", cfg.Plugin.ID)
}

func TestLoadConfigWithCli_MissingFile(t *testing.T) {
	cmd := newCmd(t)
	require.NoError(t, cmd.Flags().Parse([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}))

	_, err := config.LoadConfigWithCli(cmd)
	assert.Error(t, err)
}

func TestYAMLRoundTripsThroughFile(t *testing.T) {
	cfg := config.NewDefaultConfig()
	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "id: volume-count")
	assert.Contains(t, string(out), "shutdown-timeout: 5s")

	file := filepath.Join(t.TempDir(), "dump.yaml")
	require.NoError(t, os.WriteFile(file, out, 0o644))

	cmd := newCmd(t)
	require.NoError(t, cmd.Flags().Parse([]string{"-c", file}))
	loaded, err := config.LoadConfigWithCli(cmd)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestExampleConfigFile(t *testing.T) {
	cmd := newCmd(t)
	require.NoError(t, cmd.Flags().Parse([]string{"-c", filepath.Join("..", "..", "configs", "plugin.yaml")}))

	cfg, err := config.LoadConfigWithCli(cmd)
	require.NoError(t, err)

	want := config.NewDefaultConfig()
	want.Metrics.Socket = "/var/run/scope/plugin-metrics.sock"
	assert.Equal(t, want, cfg)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/taskboard/internal/storage"
)

// isolate points every lookup path at a temp dir so host files never leak in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, time.Second, cfg.UI.ClockInterval)
	assert.Equal(t, 10*time.Second, cfg.Reminder.ScanInterval)
	assert.Equal(t, storage.DefaultTasksKey, cfg.Storage.Key)

	opts := cfg.StorageOptions()
	assert.Equal(t, storage.BackendSQLite, opts.Backend)
	assert.Equal(t, filepath.Join(dir, "data", "taskboard", "taskboard.db"), opts.Path)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "taskboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: file
  key: my_tasks
reminder:
  scan_interval: 30s
  chime: "off"
ui:
  scheduler_buffer: 8
`), 0o644))

	t.Setenv("TASKBOARD_REMINDER_SCAN_INTERVAL", "5s")
	t.Setenv("TASKBOARD_LOG_LEVEL", "debug")

	cfg, err := Load(LoadOptions{File: path, EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "my_tasks", cfg.Storage.Key)
	assert.Equal(t, 5*time.Second, cfg.Reminder.ScanInterval)
	assert.Equal(t, "off", cfg.Reminder.Chime)
	assert.Equal(t, 8, cfg.UI.SchedulerBuffer)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "data", "taskboard", "tasks.json"), cfg.StorageOptions().Path)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("TASKBOARD_STORAGE_BACKEND=memory\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TASKBOARD_STORAGE_BACKEND") })

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, storage.BackendMemory, cfg.Storage.Backend)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(LoadOptions{File: filepath.Join(dir, "nope.yaml"), EnvFile: filepath.Join(dir, "missing.env")})
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":  func(c *Config) { c.Storage.Backend = "etcd" },
		"key":      func(c *Config) { c.Storage.Key = " " },
		"scan":     func(c *Config) { c.Reminder.ScanInterval = 0 },
		"clock":    func(c *Config) { c.UI.ClockInterval = -time.Second },
		"buffer":   func(c *Config) { c.UI.SchedulerBuffer = 0 },
		"timezone": func(c *Config) { c.Reminder.Timezone = "Mars/Olympus" },
		"format":   func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TASKBOARD_STORAGE_BACKEND", "etcd")
	_, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "missing.env")})
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := Default()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Reminder.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

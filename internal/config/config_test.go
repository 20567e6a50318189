package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	} else {
		t.Setenv("HOME", home)
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	setTempHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "windsurf", cfg.ProcessName)
	assert.Equal(t, "/exa.language_server_pb.LanguageServerService/GetUserStatus", cfg.APIPath)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 10*time.Minute, cfg.Interval())
}

func TestSaveAndLoad(t *testing.T) {
	setTempHome(t)

	cfg := &Config{
		ProcessName:   "language_server",
		ProbeTimeout:  "3s",
		WatchInterval: "1h",
	}
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "language_server", loaded.ProcessName)
	assert.Equal(t, 3*time.Second, loaded.Timeout())
	assert.Equal(t, time.Hour, loaded.Interval())
	// Defaults still fill unset fields
	assert.NotEmpty(t, loaded.APIPath)
}

func TestBadDurationFallsBack(t *testing.T) {
	cfg := &Config{ProbeTimeout: "soon", WatchInterval: "-5m"}
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 10*time.Minute, cfg.Interval())
}

func TestMalformedConfigFile(t *testing.T) {
	home := setTempHome(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".surfstat.yaml"), []byte("{not yaml"), 0600))

	_, err := Load()
	assert.Error(t, err)
}

func TestHistoryDBPath(t *testing.T) {
	home := setTempHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	path, err := cfg.HistoryDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".surfstat.db"), path)

	cfg.HistoryPath = "/tmp/custom.db"
	path, err = cfg.HistoryDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)
}

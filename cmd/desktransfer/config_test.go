package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rescp17/deskTransfer/pkg/transfer"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory so no user config is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	cfg, s, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, transfer.DefaultTransferConfig(), cfg)
	assert.Equal(t, ".", s.OutputDir)
	assert.True(t, s.ImagesOnly)
	assert.Empty(t, s.HistoryFile)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := isolate(t)
	yaml := []byte("port: 23456\nchunk_size: 8192\nframing: tagged\nio_timeout: 5s\noutput_dir: /srv/inbox\nimages_only: false\n")
	require.NoError(t, os.WriteFile(filepath.Join(home, ".desktransfer.yaml"), yaml, 0o644))
	t.Setenv("DESKTRANSFER_PORT", "34567")
	t.Setenv("DESKTRANSFER_HISTORY_FILE", "/tmp/h.json")

	v := viper.New()
	cfg, s, err := loadConfig(v, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".desktransfer.yaml"), v.ConfigFileUsed())
	assert.Equal(t, 34567, cfg.Port, "environment beats the config file")
	assert.Equal(t, 8192, cfg.ChunkSize)
	assert.Equal(t, transfer.FramingTagged, cfg.Framing)
	assert.Equal(t, 5*time.Second, cfg.IOTimeout)
	assert.Equal(t, "/srv/inbox", s.OutputDir)
	assert.False(t, s.ImagesOnly)
	assert.Equal(t, "/tmp/h.json", s.HistoryFile)
}

func TestLoadConfig_Errors(t *testing.T) {
	isolate(t)

	t.Run("missing explicit file", func(t *testing.T) {
		_, _, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("framing: morse\n"), 0o644))
		_, _, err := loadConfig(viper.New(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/penistats/pkg/logger"
	"github.com/carverauto/penistats/pkg/settings"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	path, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultPath, path)

	path, err = parseFlags([]string{"--set", "/etc/penistats.conf"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/penistats.conf", path)

	path, err = parseFlags([]string{"-s", "local.conf"})
	require.NoError(t, err)
	assert.Equal(t, "local.conf", path)

	_, err = parseFlags([]string{"--bogus"})
	require.Error(t, err)
}

func TestLoadSettingsFallsBackToDisplay(t *testing.T) {
	t.Parallel()

	log := logger.NewTestLogger()
	dir := t.TempDir()

	assert.Nil(t, loadSettings(context.Background(), log, filepath.Join(dir, "missing.conf")))

	incomplete := filepath.Join(dir, "incomplete.conf")
	require.NoError(t, os.WriteFile(incomplete, []byte(`{"mqtts": [{"hostname": "broker"}]}`), 0o600))
	assert.Nil(t, loadSettings(context.Background(), log, incomplete))
}

func TestLoadSettingsComplete(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "penistats.conf")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"device": {"group": "my lab", "serial": "s-1", "model": "Raspberry Pi 4", "name": "pi"},
		"schedule": {"every": {"minutes": 0}},
		"mqtts": [{"hostname": "broker", "port": 1883, "password": "secret"}]
	}`), 0o600))

	s := loadSettings(context.Background(), logger.NewTestLogger(), path)
	require.NotNil(t, s)

	assert.Equal(t, "mylab", s.Device.Group)
	assert.Equal(t, "s1", s.Device.Serial)
	assert.Equal(t, "Raspberry Pi Foundation", s.Device.Manufacturer)
	assert.Nil(t, s.Schedule)
	assert.NotEmpty(t, s.Destinations[0].ClientID)
	assert.Equal(t, settings.TransportMQTT, s.Destinations[0].Transport)
}

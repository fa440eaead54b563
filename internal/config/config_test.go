package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG layout only applies to Linux")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "godesk"), dir)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(path))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1, cfg.Version)
	assert.Empty(t, cfg.DeskAddress)
	assert.Equal(t, Presets{Short: 650, Tall: 850, Grande: 1050, Venti: 1250}, cfg.Presets)
	assert.False(t, cfg.MQTT.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Presets, cfg.Presets)
	assert.Equal(t, path, cfg.Path())

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config should be written on first load")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	cfg.DeskAddress = "E8:5B:5B:24:22:E4"
	cfg.Presets.Set(PresetGrande, 1100)
	cfg.MQTT.Enabled = true
	require.NoError(t, cfg.Save())

	reloaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "E8:5B:5B:24:22:E4", reloaded.DeskAddress)
	assert.Equal(t, uint16(1100), reloaded.Presets.Grande)
	assert.True(t, reloaded.MQTT.Enabled)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: "presets: [1, 2"},
		{name: "wrong version", content: "version: 2\n"},
		{name: "zero preset", content: "version: 1\npresets:\n  short: 0\n  tall: 850\n  grande: 1050\n  venti: 1250\n"},
		{name: "preset too high", content: "version: 1\npresets:\n  short: 650\n  tall: 850\n  grande: 1050\n  venti: 7000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissingFieldsKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\ndesk_address: AA:BB\n"), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AA:BB", cfg.DeskAddress)
	assert.Equal(t, Default().Presets, cfg.Presets)
	assert.Equal(t, 1883, cfg.MQTT.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GODESK_DESK_ADDRESS", "11:22:33:44:55:66")
	t.Setenv("GODESK_MQTT_HOST", "broker.lan")
	t.Setenv("GODESK_MQTT_PORT", "8883")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "11:22:33:44:55:66", cfg.DeskAddress)
	assert.Equal(t, "broker.lan", cfg.MQTT.Host)
	assert.Equal(t, 8883, cfg.MQTT.Port)
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Presets.Venti = 0

	err := cfg.SaveFile(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Error(t, err)
}

func TestValidateMQTT(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MQTTConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*MQTTConfig) {}},
		{name: "no host", mutate: func(m *MQTTConfig) { m.Host = "" }, wantErr: true},
		{name: "bad port", mutate: func(m *MQTTConfig) { m.Port = 0 }, wantErr: true},
		{name: "bad qos", mutate: func(m *MQTTConfig) { m.QoS = 3 }, wantErr: true},
		{name: "wildcard", mutate: func(m *MQTTConfig) { m.DeskName = "desk/#" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.MQTT.Enabled = true
			tt.mutate(&cfg.MQTT)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	ps := Default().Presets

	for _, p := range AllPresets() {
		ps.Set(p, 1000+uint16(p))
		assert.Equal(t, 1000+uint16(p), ps.Get(p))
	}

	assert.Equal(t, "Grande (100.2 cm)", ps.Label(PresetGrande))
	assert.Equal(t, "65.0 cm", FormatCM(650))
	assert.Equal(t, "venti", PresetVenti.String())
	assert.Equal(t, uint16(0), ps.Get(Preset(9)))
}

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset("GRANDE")
	require.NoError(t, err)
	assert.Equal(t, PresetGrande, p)

	p, err = ParsePreset("short")
	require.NoError(t, err)
	assert.Equal(t, PresetShort, p)

	_, err = ParsePreset("trenta")
	assert.Error(t, err)
}

// Package config manages the godesk configuration file.
//
// The file is YAML and holds the hardware address of the paired desk, the four
// height presets, the optional MQTT bridge settings and the log level. It lives in
// the OS configuration directory:
//   - Linux: $XDG_CONFIG_HOME/godesk/config.yaml or $HOME/.config/godesk/config.yaml
//   - macOS: $HOME/.config/godesk/config.yaml
//   - Windows: %LOCALAPPDATA%\godesk\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Presets.Set(config.PresetGrande, 1100)
//	if err := cfg.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Overrides
//
// GODESK_DESK_ADDRESS, GODESK_MQTT_HOST, GODESK_MQTT_PORT, GODESK_MQTT_USERNAME and
// GODESK_MQTT_PASSWORD take precedence over the file when it is loaded.
package config

package config

import (
	"fmt"
	"strings"

	"github.com/mlsorensen/godesk/pkg/desks/linak/comms"
)

// Config represents the entire configuration file.
type Config struct {
	Version     int           `yaml:"version"`
	DeskAddress string        `yaml:"desk_address,omitempty"` // empty until a desk is paired
	Presets     Presets       `yaml:"presets"`
	MQTT        MQTTConfig    `yaml:"mqtt"`
	Logging     LoggingConfig `yaml:"logging"`

	// path is where the config was loaded from; Save writes back to it.
	path string
}

// Presets holds the four preset heights in millimeters.
type Presets struct {
	Short  uint16 `yaml:"short"`  // sitting height
	Tall   uint16 `yaml:"tall"`   // mid-level
	Grande uint16 `yaml:"grande"` // standing height
	Venti  uint16 `yaml:"venti"`  // maximum height
}

// MQTTConfig contains the home-automation bridge settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	TLS         bool   `yaml:"tls"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
	DeskName    string `yaml:"desk_name"`
}

// LoggingConfig contains logging preferences.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error; empty disables logging
}

// Default returns a configuration with the stock presets and no paired desk.
func Default() *Config {
	return &Config{
		Version: 1,
		Presets: Presets{
			Short:  650,
			Tall:   850,
			Grande: 1050,
			Venti:  1250,
		},
		MQTT: MQTTConfig{
			Host:        "localhost",
			Port:        1883,
			ClientID:    "godesk",
			QoS:         1,
			TopicPrefix: "godesk",
			DeskName:    "desk",
		},
	}
}

// Path returns the file this config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// Preset names one of the four height presets.
type Preset int

const (
	PresetShort Preset = iota
	PresetTall
	PresetGrande
	PresetVenti
)

// AllPresets returns the presets from lowest to highest.
func AllPresets() []Preset {
	return []Preset{PresetShort, PresetTall, PresetGrande, PresetVenti}
}

// Name returns the display name of the preset.
func (p Preset) Name() string {
	switch p {
	case PresetShort:
		return "Short"
	case PresetTall:
		return "Tall"
	case PresetGrande:
		return "Grande"
	case PresetVenti:
		return "Venti"
	default:
		return fmt.Sprintf("Preset(%d)", int(p))
	}
}

func (p Preset) String() string {
	return strings.ToLower(p.Name())
}

// ParsePreset resolves a preset from its name, ignoring case.
func ParsePreset(name string) (Preset, error) {
	for _, p := range AllPresets() {
		if strings.EqualFold(name, p.Name()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown preset %q (want short, tall, grande or venti)", name)
}

// Get returns the height of p in millimeters.
func (ps *Presets) Get(p Preset) uint16 {
	switch p {
	case PresetShort:
		return ps.Short
	case PresetTall:
		return ps.Tall
	case PresetGrande:
		return ps.Grande
	case PresetVenti:
		return ps.Venti
	default:
		return 0
	}
}

// Set changes the height of p.
func (ps *Presets) Set(p Preset, heightMM uint16) {
	switch p {
	case PresetShort:
		ps.Short = heightMM
	case PresetTall:
		ps.Tall = heightMM
	case PresetGrande:
		ps.Grande = heightMM
	case PresetVenti:
		ps.Venti = heightMM
	}
}

// Label formats a preset for menus, e.g. "Grande (105.0 cm)".
func (ps *Presets) Label(p Preset) string {
	return fmt.Sprintf("%s (%s)", p.Name(), FormatCM(ps.Get(p)))
}

// FormatCM renders a height in millimeters as centimeters, e.g. "105.0 cm".
func FormatCM(mm uint16) string {
	return fmt.Sprintf("%d.%d cm", mm/10, mm%10)
}

// Validate checks that the configuration can drive a desk.
func (c *Config) Validate() error {
	for _, p := range AllPresets() {
		h := c.Presets.Get(p)
		if h == 0 || h > comms.MaxHeightMM {
			return fmt.Errorf("preset %s: height %d mm out of range (1-%d)", p, h, comms.MaxHeightMM)
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return fmt.Errorf("mqtt.host is required when mqtt is enabled")
		}
		if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
			return fmt.Errorf("mqtt.port %d out of range", c.MQTT.Port)
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
		if c.MQTT.TopicPrefix == "" || c.MQTT.DeskName == "" {
			return fmt.Errorf("mqtt.topic_prefix and mqtt.desk_name are required")
		}
		if strings.ContainsAny(c.MQTT.TopicPrefix+c.MQTT.DeskName, "+#") {
			return fmt.Errorf("mqtt topic names must not contain wildcards")
		}
	}
	return nil
}

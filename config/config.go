// Package config provides configuration loading and management for the
// operator daemon.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete operator configuration
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Topics   TopicsConfig   `yaml:"topics"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Timer    TimerConfig    `yaml:"timer"`
	Sounds   SoundsConfig   `yaml:"sounds"`
	Purge    PurgeConfig    `yaml:"purge"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// MQTTConfig configures the broker connection
type MQTTConfig struct {
	// Host is the broker hostname or IP
	Host string `yaml:"host"`
	// Port is the broker port (default: 1883)
	Port int `yaml:"port"`
	// ClientID identifies this operator instance at the broker
	ClientID string `yaml:"client_id"`
}

// URL returns the broker URL in the form the client library expects.
func (m MQTTConfig) URL() string {
	return fmt.Sprintf("tcp://%s:%d", m.Host, m.Port)
}

// TopicsConfig configures the operator's own control topics
type TopicsConfig struct {
	// Prefix is prepended to every operator topic (default: "op")
	Prefix string `yaml:"prefix"`
}

// Control returns the topic carrying operator commands.
func (t TopicsConfig) Control() string { return t.Prefix + "/gameControl" }

// Options returns the topic carrying the session options blob.
func (t TopicsConfig) Options() string { return t.Prefix + "/gameOptions" }

// State returns the topic carrying the dashboard graph snapshot.
func (t TopicsConfig) State() string { return t.Prefix + "/gameState" }

// GameTime returns the base topic of the game clock's four time topics.
func (t TopicsConfig) GameTime() string { return t.Prefix + "/gameTime" }

// WorkflowConfig selects the workflow definition to run
type WorkflowConfig struct {
	// Definition is the name of a registered workflow definition
	Definition string `yaml:"definition"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "1s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// TimerConfig configures the game clock
type TimerConfig struct {
	// Interval is the tick period of the game clock (default: 1s)
	Interval Duration `yaml:"interval"`
}

// SoundsConfig configures the audio files played at session boundaries
type SoundsConfig struct {
	// GameOver is the audio file played when the game time runs out
	GameOver string `yaml:"game_over"`
	// Success is the audio file played when the full workflow finishes
	Success string `yaml:"success"`
}

// PurgeConfig configures the retained-message purge run at startup
type PurgeConfig struct {
	// Command is the purge executable (default: "mosquitto_sub"; empty
	// values are filled from the default, set Enabled to false to skip
	// the purge entirely)
	Command string `yaml:"command"`
	// Enabled toggles the startup purge
	Enabled bool `yaml:"enabled"`
}

// HTTPConfig configures the health and metrics listener
type HTTPConfig struct {
	// Addr is the listen address (empty = no HTTP listener)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "operator",
		},
		Topics: TopicsConfig{
			Prefix: "op",
		},
		Workflow: WorkflowConfig{
			Definition: "escape-room",
		},
		Timer: TimerConfig{
			Interval: Duration(time.Second),
		},
		Sounds: SoundsConfig{
			GameOver: "/opt/operator/sounds/gameover.mp3",
			Success:  "/opt/operator/sounds/success.mp3",
		},
		Purge: PurgeConfig{
			Command: "mosquitto_sub",
			Enabled: true,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host is required")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt.port must be between 1 and 65535")
	}
	if c.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id is required")
	}
	if c.Topics.Prefix == "" {
		return fmt.Errorf("topics.prefix is required")
	}
	if c.Workflow.Definition == "" {
		return fmt.Errorf("workflow.definition is required")
	}
	if c.Timer.Interval <= 0 {
		return fmt.Errorf("timer.interval must be positive")
	}
	if c.Purge.Enabled && c.Purge.Command == "" {
		return fmt.Errorf("purge.command is required when purge is enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

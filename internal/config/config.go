// ABOUTME: Environment-driven configuration with .env support
// ABOUTME: All settings default to a usable local setup
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every tunable of the console and its tools.
type Config struct {
	// Connection
	Endpoint string
	APIKey   string
	Model    string

	// Playback
	Volume float64
	LeadIn time.Duration
	Fade   time.Duration

	// MIDI
	EnableMIDI  bool
	MIDIPort    string
	MappingPath string

	// Logging
	LogLevel string
}

// Load reads .env if present, then the environment, and validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using environment only")
	}

	cfg := &Config{
		Endpoint: getEnvOrDefault("MUSELINK_ENDPOINT", "ws://localhost:9035/session"),
		APIKey:   os.Getenv("MUSELINK_API_KEY"),
		Model:    getEnvOrDefault("MUSELINK_MODEL", "models/lyria-realtime-exp"),

		Volume: getFloatEnvOrDefault("MUSELINK_VOLUME", 1.0),
		LeadIn: time.Duration(getIntEnvOrDefault("MUSELINK_LEAD_IN_MS", 50)) * time.Millisecond,
		Fade:   time.Duration(getIntEnvOrDefault("MUSELINK_FADE_MS", 500)) * time.Millisecond,

		EnableMIDI:  getBoolEnvOrDefault("MUSELINK_MIDI", false),
		MIDIPort:    os.Getenv("MUSELINK_MIDI_PORT"),
		MappingPath: getEnvOrDefault("MUSELINK_MAPPING_PATH", "muselink-mappings.json"),

		LogLevel: getEnvOrDefault("MUSELINK_LOG_LEVEL", "info"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("config: MUSELINK_ENDPOINT must not be empty")
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("config: MUSELINK_VOLUME %v out of range [0,1]", c.Volume)
	}
	if c.LeadIn <= 0 {
		return fmt.Errorf("config: MUSELINK_LEAD_IN_MS must be positive")
	}
	if c.Fade <= 0 {
		return fmt.Errorf("config: MUSELINK_FADE_MS must be positive")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnvOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("not an integer, using default")
		return fallback
	}
	return n
}

func getFloatEnvOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("not a number, using default")
		return fallback
	}
	return f
}

func getBoolEnvOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("not a boolean, using default")
		return fallback
	}
	return b
}

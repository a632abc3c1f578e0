package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/TheSmallBoat/responder/responder"
)

// Config holds the settings of the example programs.
type Config struct {
	// Logging
	Debug bool
	Trace bool

	// Listener
	Network        string
	Addr           string
	Mode           responder.Mode
	MaxConns       int
	RejectWhenFull bool
	ReadBufferSize int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// Response is the static payload. Empty means the default status line.
	Response string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	mode, err := responder.ParseMode(getEnv("RESPONDER_MODE", "sequential"))
	if err != nil {
		return nil, fmt.Errorf("RESPONDER_MODE: %w", err)
	}

	maxConns, err := getEnvInt("RESPONDER_MAX_CONNS", 0)
	if err != nil {
		return nil, err
	}

	rejectWhenFull, err := getEnvBool("RESPONDER_REJECT_WHEN_FULL", false)
	if err != nil {
		return nil, err
	}

	readBufferSize, err := getEnvInt("RESPONDER_READ_BUFFER_SIZE", responder.DefaultReadBufferSize)
	if err != nil {
		return nil, err
	}

	debug, err := getEnvBool("DEBUG", false)
	if err != nil {
		return nil, err
	}

	trace, err := getEnvBool("TRACE", false)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("RESPONDER_READ_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("RESPONDER_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Debug: debug,
		Trace: trace,

		Network:        getEnv("RESPONDER_NETWORK", responder.DefaultNetwork),
		Addr:           getEnv("RESPONDER_ADDR", responder.DefaultAddr),
		Mode:           mode,
		MaxConns:       maxConns,
		RejectWhenFull: rejectWhenFull,
		ReadBufferSize: readBufferSize,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,

		Response: getEnv("RESPONDER_RESPONSE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate ensures configuration is coherent
func (c *Config) validate() error {
	switch c.Network {
	case "tcp", "tcp4", "tcp6":
	default:
		return fmt.Errorf("RESPONDER_NETWORK must be tcp, tcp4 or tcp6, got %q", c.Network)
	}

	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("RESPONDER_READ_BUFFER_SIZE must be positive, got %d", c.ReadBufferSize)
	}

	if c.MaxConns < 0 {
		return fmt.Errorf("RESPONDER_MAX_CONNS cant be negative, got %d", c.MaxConns)
	}

	if c.MaxConns > 0 && c.Mode != responder.ModeConcurrent {
		return fmt.Errorf("RESPONDER_MAX_CONNS requires RESPONDER_MODE=concurrent")
	}

	if c.RejectWhenFull && c.MaxConns == 0 {
		return fmt.Errorf("RESPONDER_REJECT_WHEN_FULL requires RESPONDER_MAX_CONNS")
	}

	return nil
}

// Logger builds the logger selected by DEBUG and TRACE.
func (c *Config) Logger() watermill.LoggerAdapter {
	return watermill.NewStdLogger(c.Debug || c.Trace, c.Trace)
}

// Listener converts the settings into a responder config. Handler, when not
// nil, replaces the static response.
func (c *Config) Listener(handler responder.Handler) responder.Config {
	cfg := responder.Config{
		Network:        c.Network,
		Addr:           c.Addr,
		Mode:           c.Mode,
		MaxConns:       c.MaxConns,
		RejectWhenFull: c.RejectWhenFull,
		ReadBufferSize: c.ReadBufferSize,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		Handler:        handler,
		Logger:         c.Logger(),
	}

	if handler == nil && c.Response != "" {
		cfg.Response = []byte(c.Response)
	}

	return cfg
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return boolValue, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return intValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cant be negative, got %s", key, d)
	}
	return d, nil
}

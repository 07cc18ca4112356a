// internal/config/config.go

// Package config reads server settings from the environment. A .env file is
// loaded by the godotenv autoload import in main.
package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config holds the server's runtime settings.
type Config struct {
	// Addr is the listen address, from PORT (default 8080).
	Addr string
	// LogLevel comes from LOG_LEVEL (default info).
	LogLevel logrus.Level
	// OriginPatterns come from WS_ORIGIN_PATTERNS, comma separated
	// (default "*"; tighten in production).
	OriginPatterns []string
}

// Load builds the config from the environment.
func Load() Config {
	cfg := Config{
		Addr:           ":8080",
		LogLevel:       logrus.InfoLevel,
		OriginPatterns: []string{"*"},
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.Warnf("config: invalid LOG_LEVEL %q, using info", lvl)
		} else {
			cfg.LogLevel = parsed
		}
	}
	if patterns := os.Getenv("WS_ORIGIN_PATTERNS"); patterns != "" {
		cfg.OriginPatterns = cfg.OriginPatterns[:0]
		for _, p := range strings.Split(patterns, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.OriginPatterns = append(cfg.OriginPatterns, p)
			}
		}
	}
	return cfg
}

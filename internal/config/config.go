// Package config provides configuration for the marketplace service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the marketplace configuration.
type Config struct {
	// Server settings
	HTTPPort       int
	RPCPort        int
	AllowedOrigins []string

	// Database
	DatabaseURL string

	// Events
	NATSURL   string
	NATSToken string

	// Role prediction
	PredictorURL     string
	PredictorTimeout time.Duration
	RolesLogPath     string

	// Websocket
	WSPingInterval time.Duration
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration

	// Logging
	LogLevel string
}

var defaults = map[string]any{
	"http_port":            8000,
	"rpc_port":             0,
	"allowed_origins":      "*",
	"database_url":         "file:marketplace.db?cache=shared&mode=rwc",
	"nats_url":             "",
	"nats_token":           "",
	"predictor_url":        "https://npl-model-test-1.onrender.com/predict",
	"predictor_timeout_ms": 30000,
	"roles_log_path":       "roles.json",
	"ws_ping_interval_ms":  30000,
	"ws_read_timeout_ms":   60000,
	"ws_write_timeout_ms":  10000,
	"log_level":            "info",
}

// Load reads config.yaml (or the file named by CONFIG_PATH) when present and
// lets environment variables override every key.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTPPort:         getInt(v, "http_port"),
		RPCPort:          getInt(v, "rpc_port"),
		AllowedOrigins:   splitList(v.GetString("allowed_origins")),
		DatabaseURL:      v.GetString("database_url"),
		NATSURL:          v.GetString("nats_url"),
		NATSToken:        v.GetString("nats_token"),
		PredictorURL:     v.GetString("predictor_url"),
		PredictorTimeout: getMillis(v, "predictor_timeout_ms"),
		RolesLogPath:     v.GetString("roles_log_path"),
		WSPingInterval:   getMillis(v, "ws_ping_interval_ms"),
		WSReadTimeout:    getMillis(v, "ws_read_timeout_ms"),
		WSWriteTimeout:   getMillis(v, "ws_write_timeout_ms"),
		LogLevel:         v.GetString("log_level"),
	}
	return cfg, nil
}

// getInt falls back to the default when the value is not an integer.
func getInt(v *viper.Viper, key string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key))); err == nil {
		return n
	}
	return defaults[key].(int)
}

func getMillis(v *viper.Viper, key string) time.Duration {
	return time.Duration(getInt(v, key)) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

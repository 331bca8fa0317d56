package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

type Config struct {
	ServerPort         string
	Environment        string
	LogLevel           string
	FirebaseProject    string
	ServiceAccountJSON string
	ServiceAccountPath string
	StoreBackend       string
	SendRateLimit      int
	SideEffectTimeout  time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendFirestore)
	v.SetDefault("SEND_RATE_LIMIT", 30)
	v.SetDefault("SIDE_EFFECT_TIMEOUT", 10)

	config := &Config{
		ServerPort:         v.GetString("SERVER_PORT"),
		Environment:        v.GetString("ENVIRONMENT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		FirebaseProject:    v.GetString("FIREBASE_PROJECT_ID"),
		ServiceAccountJSON: v.GetString("FIREBASE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountPath: v.GetString("FIREBASE_SERVICE_ACCOUNT_PATH"),
		StoreBackend:       v.GetString("STORE_BACKEND"),
		SendRateLimit:      v.GetInt("SEND_RATE_LIMIT"),
		SideEffectTimeout:  time.Duration(v.GetInt("SIDE_EFFECT_TIMEOUT")) * time.Second,
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the %s backend", BackendFirestore)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.SendRateLimit <= 0 {
		return fmt.Errorf("SEND_RATE_LIMIT must be positive, got %d", c.SendRateLimit)
	}
	if c.SideEffectTimeout <= 0 {
		return fmt.Errorf("SIDE_EFFECT_TIMEOUT must be positive")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

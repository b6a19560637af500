package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates all service configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Services ServicesConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	services, err := loadServicesConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Storage:  loadStorageConfig(),
		Services: services,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// allow ":8080" or "127.0.0.1:8080" directly
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StorageConfig selects and parameterizes the session store. A set
// REDIS_ADDR switches persistence from the local file store to Redis.
type StorageConfig struct {
	DataDir    string
	RedisAddr  string
	SessionKey string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:    getEnvOrDefault("DATA_DIR", "data"),
		RedisAddr:  strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		SessionKey: getEnvOrDefault("SESSION_KEY", "plant_chat_session"),
	}
}

// ServicesConfig points at the two external collaborators. Timeout
// bounds each outbound call, in seconds.
type ServicesConfig struct {
	DiagnosisURL string
	WeatherURL   string
	Timeout      int
}

func loadServicesConfig() (ServicesConfig, error) {
	timeout := 30
	if override, err := parseOptionalIntEnv("CLIENT_TIMEOUT"); err != nil {
		return ServicesConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ServicesConfig{}, fmt.Errorf("CLIENT_TIMEOUT must be positive, got %d", *override)
		}
		timeout = *override
	}

	return ServicesConfig{
		DiagnosisURL: getEnvOrDefault("DIAGNOSIS_URL", "http://localhost:8000/api/predict"),
		WeatherURL:   getEnvOrDefault("WEATHER_URL", "http://localhost:8000/api/weather"),
		Timeout:      timeout,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

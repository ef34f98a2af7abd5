package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Events EventsConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	events, err := loadEventsConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Store: store, Events: events}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	CORSOrigins   []string
	TraceRequests bool
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	trace, err := parseBoolEnv("TRACE_REQUESTS", true)
	if err != nil {
		return ServerConfig{}, err
	}

	cfg := ServerConfig{
		CORSOrigins:   parseListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TraceRequests: trace,
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// StoreConfig selects the person store backend.
type StoreConfig struct {
	Driver string
	DSN    string
}

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverMemory))
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))

	switch driver {
	case DriverMemory:
	case DriverSQLite:
		if dsn == "" {
			dsn = "people.db"
		}
	case DriverPostgres:
		if dsn == "" {
			return StoreConfig{}, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", driver)
		}
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value: %q", driver)
	}

	return StoreConfig{Driver: driver, DSN: dsn}, nil
}

// EventsConfig 描述实时推送配置
type EventsConfig struct {
	Buffer int
}

func loadEventsConfig() (EventsConfig, error) {
	buffer := 16
	override, err := parseOptionalIntEnv("EVENTS_BUFFER")
	if err != nil {
		return EventsConfig{}, err
	}
	if override != nil {
		if *override < 1 {
			buffer = 1
		} else {
			buffer = *override
		}
	}
	return EventsConfig{Buffer: buffer}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

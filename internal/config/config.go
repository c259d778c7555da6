// Package config loads the server configuration from the environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates every configurable concern of the service.
type Config struct {
	Server   ServerConfig
	Keystore KeystoreConfig
	AI       AIConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}
	keystore, err := loadKeystoreConfig()
	if err != nil {
		return nil, err
	}
	return &Config{
		Server:   server,
		Keystore: keystore,
		AI:       loadAIConfig(),
	}, nil
}

// ServerConfig describes the HTTP service.
type ServerConfig struct {
	Addr        string
	PublicURL   string
	ServerName  string
	AdminSecret string
	// TokenSecret signs OAuth-issued bearer tokens. When unset a random
	// per-process secret is generated; issued tokens then expire with the
	// process.
	TokenSecret    []byte
	TokenGenerated bool
	PagesDir       string
	LogLevel       string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}
	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	config := ServerConfig{
		Addr:        addr,
		PublicURL:   getEnv("PUBLIC_URL", "https://seo.ezbizservices.com"),
		ServerName:  getEnv("SERVER_NAME", "EzBiz SEO & Marketing Analysis"),
		AdminSecret: os.Getenv("ADMIN_SECRET"),
		PagesDir:    getEnv("PAGES_DIR", "pages"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
	if secret := os.Getenv("TOKEN_SECRET"); secret != "" {
		config.TokenSecret = []byte(secret)
	} else {
		buffer := make([]byte, 32)
		if _, err := rand.Read(buffer); err != nil {
			return ServerConfig{}, fmt.Errorf("generate token secret: %w", err)
		}
		config.TokenSecret = []byte(hex.EncodeToString(buffer))
		config.TokenGenerated = true
	}
	return config, nil
}

// KeystoreConfig selects and configures the key storage driver.
type KeystoreConfig struct {
	Driver        string
	KeyPrefix     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func loadKeystoreConfig() (KeystoreConfig, error) {
	config := KeystoreConfig{
		Driver:        getEnv("KEYSTORE_DRIVER", "memory"),
		KeyPrefix:     getEnv("KEYSTORE_PREFIX", "seo-mcp"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
	switch config.Driver {
	case "memory", "redis":
	default:
		return KeystoreConfig{}, fmt.Errorf("unknown KEYSTORE_DRIVER: %q", config.Driver)
	}
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return KeystoreConfig{}, fmt.Errorf("invalid REDIS_DB value: %q", raw)
		}
		config.RedisDB = db
	}
	return config, nil
}

// AIConfig describes the Ark analysis model.
type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

func loadAIConfig() AIConfig {
	return AIConfig{
		APIKey:  os.Getenv("ARK_API_KEY"),
		Model:   os.Getenv("ARK_MODEL"),
		BaseURL: os.Getenv("ARK_BASE_URL"),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

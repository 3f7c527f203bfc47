// Package config reads the server configuration from the environment and
// builds the process logger.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env         string
	Port        string
	DBPath      string
	CORSOrigins []string
}

// Load reads .env if present, then the environment. Unset keys fall back
// to defaults suitable for local development against the web frontend.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment without touching .env files.
func FromEnv() Config {
	return Config{
		Env:         getEnv("APP_ENV", EnvProduction),
		Port:        getEnv("HTTP_PORT", "8080"),
		DBPath:      getEnv("DB_PATH", "warehouse.db"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}
}

func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// NewLogger returns a development logger for the development environment
// and a JSON production logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == EnvDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
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

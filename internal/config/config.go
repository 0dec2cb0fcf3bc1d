package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	AuthConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDatabaseDSN() string
	GetRouteRulesFile() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Auth
}

func New() Config {
	// Missing .env is fine, real env vars still apply.
	_ = godotenv.Load()
	return mainConfig{}
}

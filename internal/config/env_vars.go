package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	databaseDSNVar = "DATABASE_URL"
	routeRulesVar  = "ROUTE_RULES_FILE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "VowQuiz Auth")
}

// GetDatabaseDSN returns the Postgres connection string for the profile store.
// Empty means "run with the in-memory profile repository".
func (EnvVars) GetDatabaseDSN() string {
	return GetEnv(databaseDSNVar, "")
}

// GetRouteRulesFile returns an optional YAML file overriding the built-in
// route classification table.
func (EnvVars) GetRouteRulesFile() string {
	return GetEnv(routeRulesVar, "")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

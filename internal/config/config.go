// Package config loads devgate configuration from environment and file.
package config

import "os"

// Config holds application configuration loaded from environment and file.
// Priority: Env vars → config.toml → defaults
type Config struct {
	// ServerPort is the address to bind the server to (e.g., ":8080")
	ServerPort string

	// Dev holds the Dev backend connection and signing settings
	Dev DevConfig

	// Default routing for unaliased models
	Default *DefaultRoute

	// Models contains model alias mappings
	Models []ModelAlias
}

// DevConfig configures the Dev backend client and the signing module.
type DevConfig struct {
	// Endpoint is the Dev chat API URL
	Endpoint string

	// DeviceID identifies this installation to the backend; it is part of
	// the signed tuple
	DeviceID string

	// OSType is the backend's numeric platform discriminator
	OSType string

	// SID is the session identifier header value
	SID string

	// WasmPath points at the compiled signing module
	WasmPath string

	// Default request options forwarded in the "extra" payload
	SearchMode          string
	Language            string
	IsExpert            bool
	PluginAction        string
	ProgrammingLanguage string
}

// Load reads configuration from file and environment variables.
// Environment variables override file config values.
func Load() *Config {
	fileConfig, _ := LoadFile() // Ignore error, use defaults

	dev := DevConfig{
		Endpoint:            getEnvOrFile("DEV_API_ENDPOINT", fileConfig.Dev.Endpoint, ""),
		DeviceID:            getEnvOrFile("DEV_DEVICE_ID", fileConfig.Dev.DeviceID, ""),
		OSType:              getEnvOrFile("DEV_OS_TYPE", fileConfig.Dev.OSType, "3"),
		SID:                 getEnvOrFile("DEV_SID", fileConfig.Dev.SID, ""),
		WasmPath:            getEnvOrFile("DEV_WASM_PATH", fileConfig.Dev.WasmPath, WasmPath()),
		SearchMode:          getEnvOrFile("DEV_SEARCH_MODE", fileConfig.Dev.SearchMode, "web"),
		Language:            getEnvOrFile("DEV_LANGUAGE", fileConfig.Dev.Language, "en"),
		IsExpert:            getEnvBoolOrFile("DEV_IS_EXPERT", fileConfig.Dev.IsExpert, false),
		PluginAction:        getEnvOrFile("DEV_PLUGIN_ACTION", fileConfig.Dev.PluginAction, ""),
		ProgrammingLanguage: getEnvOrFile("DEV_PROGRAMMING_LANGUAGE", fileConfig.Dev.ProgrammingLanguage, ""),
	}

	return &Config{
		ServerPort: getEnvOrFile("SERVER_PORT", fileConfig.ServerPort, ":8080"),
		Dev:        dev,
		Default:    fileConfig.Default,
		Models:     fileConfig.Models,
	}
}

// getEnvOrFile returns env value, file value, or default (in priority order)
func getEnvOrFile(key, fileValue, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

// getEnvBoolOrFile returns env bool, file bool, or default (in priority order)
func getEnvBoolOrFile(key string, fileValue *bool, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	if fileValue != nil {
		return *fileValue
	}
	return defaultValue
}

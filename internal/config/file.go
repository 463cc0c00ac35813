package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file structure.
type FileConfig struct {
	ServerPort string        `toml:"server_port"`
	Dev        DevFileConfig `toml:"dev"`
	Default    *DefaultRoute `toml:"default"`
	Models     []ModelAlias  `toml:"models"`
}

// DevFileConfig mirrors DevConfig for TOML parsing. IsExpert is a pointer to
// distinguish "unset" from "false".
type DevFileConfig struct {
	Endpoint            string `toml:"endpoint"`
	DeviceID            string `toml:"device_id"`
	OSType              string `toml:"os_type"`
	SID                 string `toml:"sid"`
	WasmPath            string `toml:"wasm_path"`
	SearchMode          string `toml:"search_mode"`
	Language            string `toml:"language"`
	IsExpert            *bool  `toml:"is_expert"`
	PluginAction        string `toml:"plugin_action"`
	ProgrammingLanguage string `toml:"programming_language"`
}

// DefaultRoute defines the fallback provider and model for unknown slugs.
type DefaultRoute struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

// ModelAlias maps a short slug to a provider and model combination.
type ModelAlias struct {
	Slug     string `toml:"slug"`
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
}

// LoadFile loads configuration from the TOML file.
// Returns an empty FileConfig if the file doesn't exist.
func LoadFile() (*FileConfig, error) {
	cfg := &FileConfig{}

	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnsureConfigFile creates a default config file with commented examples if none exists.
func EnsureConfigFile() error {
	path := ConfigPath()

	// If config already exists, do nothing
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Ensure directory exists
	if err := EnsureDataDir(); err != nil {
		return err
	}

	defaultConfig := `# Devgate Configuration
# server_port = ":8080"

# Dev backend connection. The endpoint, device id and sid are required;
# the wasm module defaults to ~/.devgate/sign_bg.wasm.
# [dev]
# endpoint = "https://api.example.com/chat"
# device_id = "your-device-id"
# os_type = "3"
# sid = "your-session-id"
# wasm_path = ""
# search_mode = "web"
# language = "en"
# is_expert = false

# Optional default routing for unaliased models
# [default]
# provider = "dev"

# Model aliases - map short names to provider/model combinations
# [[models]]
# slug = "dev-default"
# provider = "dev"
# model = "default"
`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}

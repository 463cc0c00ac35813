package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the path to the devgate data directory.
// - Windows: %APPDATA%\devgate
// - Other OS: ~/.devgate
func DataDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "devgate")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".devgate"
	}
	return filepath.Join(home, ".devgate")
}

// ConfigPath returns the path to the config file (~/.devgate/config.toml).
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// DBPath returns the path to the SQLite database file.
func DBPath() string {
	return filepath.Join(DataDir(), "devgate.db")
}

// WasmPath returns the default path to the compiled signing module.
func WasmPath() string {
	return filepath.Join(DataDir(), "sign_bg.wasm")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}

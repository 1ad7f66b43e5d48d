package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the default data directory for careloop.
// Windows: %LOCALAPPDATA%\careloop
// Linux/Mac: ~/.local/share/careloop
func DataDir() string {
	if dir := os.Getenv("CARELOOP_DATA_DIR"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "careloop")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "careloop")
}

// IndexDir returns the directory where the passage index is stored.
func IndexDir() string {
	if dir := os.Getenv("CARELOOP_INDEX_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(DataDir(), "index")
}

// DBPath returns the path of the SQLite database file.
func DBPath() string {
	if p := os.Getenv("CARELOOP_DB_PATH"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "careloop.db")
}

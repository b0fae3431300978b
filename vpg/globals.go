package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultConfigPath is the default path to the config file
	DefaultAppName          = "vpg"
	DefaultConfigPath       = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCacheDir         = filepath.Join(DefaultConfigPath, ".cache")
	DefaultThumbnailDir     = filepath.Join(DefaultCacheDir, "thumbs")
	DefaultLibraryDBPath    = filepath.Join(DefaultConfigPath, "library.db")
	DefaultGlobalConfigFile = filepath.Join(DefaultConfigPath, "config.yaml")
	DefaultIgnoreFileName   = "." + DefaultAppName + "ignore"

	// Default library settings
	DefaultLibraryDSN = "file:" + DefaultLibraryDBPath

	// Default timeline settings
	DefaultPageSize        = 500
	DefaultThumbnailHeight = 235.0
	DefaultAspectRatio     = 1.5
	DefaultRowFill         = 0.7
	DefaultServerAddress   = ":2283"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// GetLoggerLevel returns the application logger filtered at the named level.
// Unknown level names fall back to info.
func GetLoggerLevel(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return GetLogger().Level(lvl)
}

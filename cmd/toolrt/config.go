package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// Config holds application configuration loaded from environment
// variables, grounded on the teacher's cmd/mcplexer/config.go envOr
// convention, narrowed to the fields this runtime's serve/init/secret
// subcommands actually use.
type Config struct {
	HTTPAddr   string     // listen address for the HTTP host, e.g. "127.0.0.1:8080"
	DBDSN      string     // sqlite file path
	AgeKeyPath string     // path to an age identity file; auto-created on first run if absent
	ConfigFile string     // path to toolrt.yaml
	LogLevel   slog.Level // slog level
}

// defaultDataPath returns ~/.toolrt/<filename>, falling back to a
// CWD-relative path if the home directory can't be resolved.
func defaultDataPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filename
	}
	return filepath.Join(home, ".toolrt", filename)
}

func loadConfig() (*Config, error) {
	return &Config{
		HTTPAddr:   envOr("TOOLRT_HTTP_ADDR", "127.0.0.1:8080"),
		DBDSN:      envOr("TOOLRT_DB_DSN", defaultDataPath("toolrt.db")),
		AgeKeyPath: envOr("TOOLRT_AGE_KEY", defaultDataPath("toolrt.age")),
		ConfigFile: envOr("TOOLRT_CONFIG", defaultDataPath("toolrt.yaml")),
		LogLevel:   parseLogLevel(envOr("TOOLRT_LOG_LEVEL", "info")),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadOrCreateIdentity reads the age identity string at path, creating
// a fresh X25519 identity and persisting it there on first run. The
// teacher auto-generates a key file alongside the database rather than
// requiring an operator to run age-keygen by hand first; this keeps
// that ergonomic while writing the identity string (not a key-path
// reference) through, since secrets.NewAgeEncryptor takes the literal
// AGE-SECRET-KEY-1... string.
func loadOrCreateIdentity(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read age key file %s: %w", path, err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generate age identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(identity.String()+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write age key file %s: %w", path, err)
	}
	slog.Info("generated new age identity", "path", path)
	return identity.String(), nil
}

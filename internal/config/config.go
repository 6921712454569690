package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	appDirName = "twitch-soundbot"
	envName    = ".env"

	defaultRedirectURI = "http://localhost/"
	defaultBindAddress = "127.0.0.1:17564"
	defaultSoundsDir   = "sounds"
)

type Config struct {
	TwitchClientID     string
	TwitchClientSecret string
	TwitchRedirectURI  string
	BroadcasterLogin   string
	BindAddress        string
	SoundsDir          string
	LogLevel           string
	LogFormat          string
}

// Load reads the soundbot .env file from the user config directory into the
// environment, running the interactive first-run setup if the file does not
// exist yet, and then builds the Config from environment variables.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Bootstrap(path, os.Stdin, os.Stdout); err != nil {
			return nil, fmt.Errorf("first-run setup: %w", err)
		}
	}

	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return FromEnv()
}

// DefaultPath returns the location of the soundbot .env file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(dir, appDirName, envName), nil
}

// FromEnv builds and validates a Config from environment variables.
func FromEnv() (*Config, error) {
	cfg := &Config{
		TwitchClientID:     getEnv("TWITCH_CLIENT_ID", ""),
		TwitchClientSecret: getEnv("TWITCH_CLIENT_SECRET", ""),
		TwitchRedirectURI:  getEnv("TWITCH_REDIRECT_URI", defaultRedirectURI),
		BroadcasterLogin:   getEnv("BROADCASTER_LOGIN", ""),
		BindAddress:        getEnv("BIND_ADDRESS", defaultBindAddress),
		SoundsDir:          getEnv("SOUNDS_DIR", defaultSoundsDir),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if cfg.TwitchClientID == "" {
		return nil, fmt.Errorf("TWITCH_CLIENT_ID is required")
	}
	if cfg.TwitchClientSecret == "" {
		return nil, fmt.Errorf("TWITCH_CLIENT_SECRET is required")
	}
	if cfg.BroadcasterLogin == "" {
		return nil, fmt.Errorf("BROADCASTER_LOGIN is required")
	}

	return cfg, nil
}

// Bootstrap prompts for the required settings on in/out and writes them as a
// .env file at path, creating parent directories as needed.
func Bootstrap(path string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "No config found. Let's set it up.")

	reader := bufio.NewReader(in)
	prompt := func(msg string) (string, error) {
		fmt.Fprintf(out, "%s: ", msg)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	clientID, err := prompt("TWITCH_CLIENT_ID")
	if err != nil {
		return err
	}
	clientSecret, err := prompt("TWITCH_CLIENT_SECRET")
	if err != nil {
		return err
	}
	redirectURI, err := prompt("TWITCH_REDIRECT_URI (default " + defaultRedirectURI + ")")
	if err != nil {
		return err
	}
	broadcasterLogin, err := prompt("BROADCASTER_LOGIN")
	if err != nil {
		return err
	}
	bindAddress, err := prompt("BIND_ADDRESS (default " + defaultBindAddress + ")")
	if err != nil {
		return err
	}

	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}
	if bindAddress == "" {
		bindAddress = defaultBindAddress
	}

	content := fmt.Sprintf(
		"TWITCH_CLIENT_ID=%s\nTWITCH_CLIENT_SECRET=%s\nTWITCH_REDIRECT_URI=%s\nBROADCASTER_LOGIN=%s\nBIND_ADDRESS=%s\n",
		clientID, clientSecret, redirectURI, broadcasterLogin, bindAddress,
	)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "Config written to %s\n", path)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

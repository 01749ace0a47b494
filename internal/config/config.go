// Package config handles the XDG configuration directory, file paths and
// the settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "todosync"

	// SettingsFile is the optional YAML settings filename.
	SettingsFile = "settings.yaml"

	// TokenFile is the stored session token filename.
	TokenFile = "token.json"

	// GoogleClientFile is the Google OAuth client credentials filename
	// used by import-google.
	GoogleClientFile = "google_oauth_client.json"

	// GoogleTokenFile is the stored Google OAuth token filename.
	GoogleTokenFile = "google_token.json"
)

// Defaults of the hosted deployment.
const (
	DefaultGraphQLURL      = "https://u4diqjuksvfavi7r65ggpoqr3m.appsync-api.us-east-1.amazonaws.com/graphql"
	DefaultAuthDomain      = "https://sleekflow-todo.auth.us-east-1.amazoncognito.com"
	DefaultClientID        = "77avaefai0c95es1fdb2qna3aq"
	DefaultRefreshInterval = 30 * time.Minute
	DefaultCallbackPort    = 8085
)

// DefaultScopes are the OAuth scopes requested at login.
var DefaultScopes = []string{"openid", "email", "profile"}

// Settings holds the endpoints and tunables read from settings.yaml.
type Settings struct {
	GraphQLURL      string        `yaml:"graphql_url"`
	RealtimeURL     string        `yaml:"realtime_url"`
	AuthDomain      string        `yaml:"auth_domain"`
	ClientID        string        `yaml:"client_id"`
	Scopes          []string      `yaml:"scopes"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	CallbackPort    int           `yaml:"callback_port"`
}

// DefaultSettings returns the settings used when settings.yaml is absent.
func DefaultSettings() Settings {
	return Settings{
		GraphQLURL:      DefaultGraphQLURL,
		AuthDomain:      DefaultAuthDomain,
		ClientID:        DefaultClientID,
		Scopes:          append([]string(nil), DefaultScopes...),
		RefreshInterval: DefaultRefreshInterval,
		CallbackPort:    DefaultCallbackPort,
	}
}

// RealtimeEndpoint returns the websocket endpoint of the change feed.
// When RealtimeURL is unset it is derived from the GraphQL URL the way the
// managed service names it.
func (s Settings) RealtimeEndpoint() string {
	if s.RealtimeURL != "" {
		return s.RealtimeURL
	}
	u, err := url.Parse(s.GraphQLURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Host = strings.Replace(u.Host, "appsync-api", "appsync-realtime-api", 1)
	return u.String()
}

// AuthorizeURL returns the hosted UI authorization endpoint.
func (s Settings) AuthorizeURL() string {
	return strings.TrimRight(s.AuthDomain, "/") + "/oauth2/authorize"
}

// TokenURL returns the token endpoint.
func (s Settings) TokenURL() string {
	return strings.TrimRight(s.AuthDomain, "/") + "/oauth2/token"
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Settings are the loaded settings (defaults when the file is absent).
	Settings Settings

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a new Config with the default or specified config directory
// and loads settings.yaml from it.
// If configDir is empty, uses XDG_CONFIG_HOME/todosync or $HOME/.config/todosync.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}

	settings, err := LoadSettings(cfg.SettingsPath())
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings
	return cfg, nil
}

// LoadSettings reads a settings file over the defaults. A missing file
// yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("invalid %s: %w", SettingsFile, err)
	}
	if settings.RefreshInterval <= 0 {
		return Settings{}, fmt.Errorf("invalid %s: refresh_interval must be positive", SettingsFile)
	}
	if settings.CallbackPort <= 0 || settings.CallbackPort > 65535 {
		return Settings{}, fmt.Errorf("invalid %s: callback_port out of range", SettingsFile)
	}
	return settings, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to the settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored session token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// GoogleClientPath returns the path to the Google OAuth client credentials.
func (c *Config) GoogleClientPath() string {
	return filepath.Join(c.Dir, GoogleClientFile)
}

// GoogleTokenPath returns the path to the stored Google OAuth token.
func (c *Config) GoogleTokenPath() string {
	return filepath.Join(c.Dir, GoogleTokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the session token file exists.
func (c *Config) HasToken() bool {
	return exists(c.TokenPath())
}

// HasGoogleClient checks if the Google OAuth client credentials exist.
func (c *Config) HasGoogleClient() bool {
	return exists(c.GoogleClientPath())
}

// RemoveToken deletes the session token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

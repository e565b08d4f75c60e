package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"jxscout/internal/tree"
)

// Version is the current config schema version.
const Version = 1

// EnvPrefix prefixes environment overrides, e.g. JXSCOUT_SERVER_PORT.
const EnvPrefix = "JXSCOUT"

// DirName is the directory searched for config.{json,yaml,yml,toml}.
const DirName = ".jxscout"

// Config represents the complete jxscout client configuration
type Config struct {
	Version int `json:"version" yaml:"version" toml:"version" mapstructure:"version"`

	Server  ServerConfig  `json:"server" yaml:"server" toml:"server" mapstructure:"server"`
	Link    LinkConfig    `json:"link" yaml:"link" toml:"link" mapstructure:"link"`
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging" mapstructure:"logging"`
	Update  UpdateConfig  `json:"update" yaml:"update" toml:"update" mapstructure:"update"`
	View    ViewConfig    `json:"view" yaml:"view" toml:"view" mapstructure:"view"`
}

// ServerConfig locates the analysis server
type ServerConfig struct {
	Host string `json:"host" yaml:"host" toml:"host" mapstructure:"host"`
	Port int    `json:"port" yaml:"port" toml:"port" mapstructure:"port"`
	// Path is the WebSocket route. The AST analyzer listens on /ast-analyzer/ws.
	Path string `json:"path" yaml:"path" toml:"path" mapstructure:"path"`
}

// LinkConfig tunes the connection
type LinkConfig struct {
	ReconnectDelayMs int `json:"reconnectDelayMs" yaml:"reconnectDelayMs" toml:"reconnectDelayMs" mapstructure:"reconnectDelayMs"`
	// RequestTimeoutMs of 0 disables the request timeout
	RequestTimeoutMs int `json:"requestTimeoutMs" yaml:"requestTimeoutMs" toml:"requestTimeoutMs" mapstructure:"requestTimeoutMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" yaml:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" yaml:"level" toml:"level" mapstructure:"level"`
	File   string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty" mapstructure:"file"`
}

// UpdateConfig controls the release check
type UpdateConfig struct {
	Enabled              bool `json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	CheckIntervalMinutes int  `json:"checkIntervalMinutes" yaml:"checkIntervalMinutes" toml:"checkIntervalMinutes" mapstructure:"checkIntervalMinutes"`
}

// ViewConfig holds the initial presentation settings
type ViewConfig struct {
	Scope    string `json:"scope" yaml:"scope" toml:"scope" mapstructure:"scope"`
	SortMode string `json:"sortMode" yaml:"sortMode" toml:"sortMode" mapstructure:"sortMode"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Server: ServerConfig{
			Host: "localhost",
			Port: 3333,
			Path: "/ws",
		},
		Link: LinkConfig{
			ReconnectDelayMs: 5000,
			RequestTimeoutMs: 30000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Update: UpdateConfig{
			Enabled:              true,
			CheckIntervalMinutes: 60,
		},
		View: ViewConfig{
			Scope:    string(tree.ScopeFile),
			SortMode: string(tree.SortOccurrence),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.path", d.Server.Path)
	v.SetDefault("link.reconnectDelayMs", d.Link.ReconnectDelayMs)
	v.SetDefault("link.requestTimeoutMs", d.Link.RequestTimeoutMs)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("update.enabled", d.Update.Enabled)
	v.SetDefault("update.checkIntervalMinutes", d.Update.CheckIntervalMinutes)
	v.SetDefault("view.scope", d.View.Scope)
	v.SetDefault("view.sortMode", d.View.SortMode)
}

// Loader reads configuration with viper and can watch the file it found.
type Loader struct {
	v    *viper.Viper
	mu   sync.Mutex
	file string
}

// NewLoader prepares a loader. An explicit path wins; otherwise .jxscout/config.* is
// searched in workDir and then in the user's home directory.
func NewLoader(explicitPath, workDir string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		if workDir != "" {
			v.AddConfigPath(filepath.Join(workDir, DirName))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, DirName))
		}
	}
	return &Loader{v: v}
}

// Load reads the config file, if any, and applies environment overrides.
// A missing file in the search path yields the defaults.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	l.mu.Lock()
	l.file = l.v.ConfigFileUsed()
	if _, err := os.Stat(l.file); err != nil {
		l.file = ""
	}
	l.mu.Unlock()

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ConfigFile returns the file Load read, or "" when defaults were used.
func (l *Loader) ConfigFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file
}

// Watch calls fn with the re-read configuration whenever the config file changes.
// It reports false when there is no file to watch.
func (l *Loader) Watch(fn func(cfg *Config, err error)) bool {
	if l.ConfigFile() == "" {
		return false
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err == nil {
			err = cfg.Validate()
		}
		fn(cfg, err)
	})
	l.v.WatchConfig()
	return true
}

// LoadConfig loads configuration the way NewLoader(explicitPath, workDir).Load does
func LoadConfig(explicitPath, workDir string) (*Config, error) {
	return NewLoader(explicitPath, workDir).Load()
}

// Endpoint returns the WebSocket URL of the analysis server.
func (c *Config) Endpoint() string {
	path := c.Server.Path
	if path == "" {
		path = "/ws"
	}
	return "ws://" + net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port)) + path
}

// ReconnectDelay returns the fixed reconnect delay.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Link.ReconnectDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout; a negative duration means none.
func (c *Config) RequestTimeout() time.Duration {
	if c.Link.RequestTimeoutMs == 0 {
		return -1
	}
	return time.Duration(c.Link.RequestTimeoutMs) * time.Millisecond
}

// UpdateInterval returns the minimum time between release checks.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Update.CheckIntervalMinutes) * time.Minute
}

// Save writes the configuration to path, encoded by its extension
// (.json, .yaml, .yml or .toml).
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	default:
		return &ConfigError{Field: "path", Message: fmt.Sprintf("unsupported config format %q", ext)}
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != Version {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return &ConfigError{Field: "server.host", Message: "must not be empty"}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.Server.Path != "" && !strings.HasPrefix(c.Server.Path, "/") {
		return &ConfigError{Field: "server.path", Message: "must start with /"}
	}
	if c.Link.ReconnectDelayMs < 0 {
		return &ConfigError{Field: "link.reconnectDelayMs", Message: "must not be negative"}
	}
	if c.Link.RequestTimeoutMs < 0 {
		return &ConfigError{Field: "link.requestTimeoutMs", Message: "must not be negative"}
	}
	if c.Update.CheckIntervalMinutes < 0 {
		return &ConfigError{Field: "update.checkIntervalMinutes", Message: "must not be negative"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: "must be debug, info, warn or error"}
	}
	if _, err := tree.ParseScope(c.View.Scope); err != nil {
		return &ConfigError{Field: "view.scope", Message: err.Error()}
	}
	if _, err := tree.ParseSortMode(c.View.SortMode); err != nil {
		return &ConfigError{Field: "view.sortMode", Message: err.Error()}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

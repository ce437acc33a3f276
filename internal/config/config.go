// Package config loads the client configuration. Values are layered: built-in defaults,
// then the config file (YAML or TOML by extension), then a .env file, then ASSIGNO_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Balram04/assigno/internal/common/httpclient"
	"github.com/Balram04/assigno/internal/storage"
)

const (
	// ConfigFormatVersion is the version written to new config files.
	ConfigFormatVersion = "0.1"
	// DefaultConfigFile is the name of the config file under the user config directory.
	DefaultConfigFile = "config.yaml"
	// DefaultSessionFile is the file-backed session store, next to the config file.
	DefaultSessionFile = "session.yaml"
	// DefaultDotEnv is read from the working directory when no other path is given.
	DefaultDotEnv = ".env"

	appDir = "assigno"
)

// Environment variables that override the config file.
const (
	EnvAPIURL         = "ASSIGNO_API_URL"
	EnvRequestTimeout = "ASSIGNO_REQUEST_TIMEOUT"
	EnvVerifyTimeout  = "ASSIGNO_VERIFY_TIMEOUT"
	EnvPollInterval   = "ASSIGNO_POLL_INTERVAL"
	EnvLogLevel       = "ASSIGNO_LOG_LEVEL"
	EnvInsecure       = "ASSIGNO_INSECURE_SKIP_VERIFY"
	EnvStorage        = "ASSIGNO_STORAGE"
	EnvStoragePath    = "ASSIGNO_STORAGE_PATH"
	EnvRedisAddr      = "ASSIGNO_REDIS_ADDR"
	EnvRedisPassword  = "ASSIGNO_REDIS_PASSWORD"
	EnvRedisDB        = "ASSIGNO_REDIS_DB"
)

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	Addr      string `yaml:"addr,omitempty" toml:"addr,omitempty" validate:"required_if=Enabled true"`
	Username  string `yaml:"username,omitempty" toml:"username,omitempty"`
	Password  string `yaml:"password,omitempty" toml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty" toml:"db,omitempty" validate:"gte=0"`
	KeyPrefix string `yaml:"key_prefix,omitempty" toml:"key_prefix,omitempty"`
	Enabled   bool   `yaml:"-" toml:"-"`
}

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	Kind  string      `yaml:"kind,omitempty" toml:"kind,omitempty" validate:"omitempty,oneof=file memory redis"`
	Path  string      `yaml:"path,omitempty" toml:"path,omitempty"`
	Redis RedisConfig `yaml:"redis,omitempty" toml:"redis,omitempty"`
}

// Config is the client configuration.
type Config struct {
	Version            string        `yaml:"version" toml:"version"`
	ServerURL          string        `yaml:"server_url" toml:"server_url" validate:"required,url"`
	RequestTimeout     time.Duration `yaml:"request_timeout,omitempty" toml:"request_timeout,omitempty" validate:"gte=0"`
	VerifyTimeout      time.Duration `yaml:"verify_timeout,omitempty" toml:"verify_timeout,omitempty" validate:"gte=0"`
	PollInterval       time.Duration `yaml:"poll_interval,omitempty" toml:"poll_interval,omitempty" validate:"gte=0"`
	LogLevel           string        `yaml:"log_level,omitempty" toml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error disabled"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify,omitempty" toml:"insecure_skip_verify,omitempty"`
	Storage            StorageConfig `yaml:"storage,omitempty" toml:"storage,omitempty"`

	path string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version:        ConfigFormatVersion,
		ServerURL:      httpclient.DefaultServerURL,
		RequestTimeout: 30 * time.Second,
		VerifyTimeout:  10 * time.Second,
		PollInterval:   5 * time.Second,
		LogLevel:       "warn",
		Storage:        StorageConfig{Kind: storage.KindFile},
	}
}

// DefaultPath returns the config file location under the OS user config directory,
// for example ~/.config/assigno/config.yaml on Linux.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, appDir, DefaultConfigFile), nil
}

// Load reads file (DefaultPath when empty) and applies dotenv and environment overrides.
// A missing config file is not an error. dotenv defaults to DefaultDotEnv.
func Load(file, dotenv string) (*Config, error) {
	if file == "" {
		var err error
		if file, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	cfg.path = file

	data, err := os.ReadFile(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("unable to read config file: %w", err)
	default:
		if err := decode(file, data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file %s: %w", file, err)
		}
	}

	if dotenv == "" {
		dotenv = DefaultDotEnv
	}
	dotValues, err := godotenv.Read(dotenv)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to read %s: %w", dotenv, err)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotValues[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	cfg.ServerURL = MorphServer(cfg.ServerURL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isTOML(file string) bool {
	return strings.EqualFold(filepath.Ext(file), ".toml")
}

func decode(file string, data []byte, cfg *Config) error {
	if isTOML(file) {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str(EnvAPIURL, &cfg.ServerURL)
	str(EnvLogLevel, &cfg.LogLevel)
	str(EnvStorage, &cfg.Storage.Kind)
	str(EnvStoragePath, &cfg.Storage.Path)
	str(EnvRedisAddr, &cfg.Storage.Redis.Addr)
	str(EnvRedisPassword, &cfg.Storage.Redis.Password)

	for key, dst := range map[string]*time.Duration{
		EnvRequestTimeout: &cfg.RequestTimeout,
		EnvVerifyTimeout:  &cfg.VerifyTimeout,
		EnvPollInterval:   &cfg.PollInterval,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRedisDB, err)
		}
		cfg.Storage.Redis.DB = db
	}
	if v, ok := lookup(EnvInsecure); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvInsecure, err)
		}
		cfg.InsecureSkipVerify = b
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration.
func (cfg *Config) Validate() error {
	cfg.Storage.Kind = strings.ToLower(strings.TrimSpace(cfg.Storage.Kind))
	cfg.Storage.Redis.Enabled = cfg.Storage.Kind == storage.KindRedis
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return errors.New("server URL must start with http:// or https://")
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (cfg *Config) Path() string {
	return cfg.path
}

// Write saves the configuration to file, or to the file it was loaded from when empty.
func (cfg *Config) Write(file string) error {
	if file == "" {
		file = cfg.path
	}
	if file == "" {
		return errors.New("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if isTOML(file) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("unable to generate configuration: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("unable to generate configuration: %w", err)
		}
		_ = enc.Close()
	}

	if err := os.WriteFile(file, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	cfg.path = file
	return nil
}

// MorphServer normalises a server URL: trailing slashes are removed and a missing scheme
// becomes http:// for local hosts and https:// otherwise.
func MorphServer(server string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		return server
	}
	if strings.Contains(server, "://") {
		return server
	}
	host := server
	if i := strings.IndexAny(host, ":/"); i >= 0 {
		host = host[:i]
	}
	if host == "localhost" || host == "127.0.0.1" || host == "[::1]" {
		return "http://" + server
	}
	return "https://" + server
}

// StorageOptions maps the storage section onto the storage factory. The file backend
// defaults to DefaultSessionFile next to the config file.
func (cfg *Config) StorageOptions() storage.Options {
	path := cfg.Storage.Path
	if path == "" && cfg.path != "" {
		path = filepath.Join(filepath.Dir(cfg.path), DefaultSessionFile)
	}
	return storage.Options{
		Kind:     cfg.Storage.Kind,
		FilePath: path,
		Redis: storage.RedisOptions{
			Addr:      cfg.Storage.Redis.Addr,
			Username:  cfg.Storage.Redis.Username,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		},
	}
}

// ClientOptions maps the transport settings onto the gateway client.
func (cfg *Config) ClientOptions() httpclient.ClientOptions {
	return httpclient.ClientOptions{
		Timeout:               cfg.RequestTimeout,
		DisableCertValidation: cfg.InsecureSkipVerify,
	}
}

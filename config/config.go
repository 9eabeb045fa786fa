package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FTPCTL_SERVER_IP.
const EnvPrefix = "FTPCTL"

type Server struct {
	IP       string `mapstructure:"ip" validate:"required"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Security struct {
	FTPSImplicit       bool   `mapstructure:"ftps_implicit"`
	FTPSExplicit       bool   `mapstructure:"ftps_explicit"`
	TLSSkipVerify      bool   `mapstructure:"tls_skip_verify"`
	ClientCertPath     string `mapstructure:"client_cert_path"`
	ClientCertPassword string `mapstructure:"client_cert_password" validate:"required_with=ClientCertPath"`
}

type HTTP struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// Config is the full service configuration.
type Config struct {
	Server           Server   `mapstructure:"server"`
	RootDir          string   `mapstructure:"ftp_root_dir" validate:"required,startswith=/"`
	BaseAccessURL    string   `mapstructure:"base_access_url" validate:"omitempty,url"`
	Security         Security `mapstructure:"security"`
	TimeoutSeconds   int      `mapstructure:"timeout_seconds" validate:"min=0"`
	HTTP             HTTP     `mapstructure:"http"`
	LogLevel         string   `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	NotifyWebhookURL string   `mapstructure:"notify_webhook_url" validate:"omitempty,url"`
}

// Timeout returns the dial/command timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

var validate = validator.New()

// Validate checks required fields and ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.ip", "")
	v.SetDefault("server.port", 21)
	v.SetDefault("server.username", "")
	v.SetDefault("server.password", "")
	v.SetDefault("ftp_root_dir", "/")
	v.SetDefault("base_access_url", "")
	v.SetDefault("security.ftps_implicit", false)
	v.SetDefault("security.ftps_explicit", false)
	v.SetDefault("security.tls_skip_verify", false)
	v.SetDefault("security.client_cert_path", "")
	v.SetDefault("security.client_cert_password", "")
	v.SetDefault("timeout_seconds", 30)
	v.SetDefault("http.addr", ":2992")
	v.SetDefault("log_level", "info")
	v.SetDefault("notify_webhook_url", "")
}

func initViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ftp_control")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.ftp_control")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func readInto(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// MustLoad reads .env, the config file (when present) and FTPCTL_* variables.
// The result is validated.
func MustLoad(configPath string) (Config, error) {
	_, cfg, err := load(configPath)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func load(configPath string) (*viper.Viper, Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v, err := initViper(configPath)
	if err != nil {
		return nil, Config{}, err
	}
	cfg, err := readInto(v)
	return v, cfg, err
}

// Source yields the configuration to use for the next invocation.
type Source interface {
	Current() Config
}

// Static is a fixed configuration.
type Static Config

func (s Static) Current() Config { return Config(s) }

// Store holds the latest configuration and swaps it when the file changes.
type Store struct {
	current atomic.Pointer[Config]

	mu          sync.Mutex
	subscribers []func(Config)
}

// NewStore wraps an initial configuration.
func NewStore(cfg Config) *Store {
	s := &Store{}
	s.current.Store(&cfg)
	return s
}

func (s *Store) Current() Config { return *s.current.Load() }

// Set replaces the configuration and notifies subscribers.
func (s *Store) Set(cfg Config) {
	s.current.Store(&cfg)

	s.mu.Lock()
	subs := append(([]func(Config))(nil), s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(cfg)
	}
}

// Subscribe registers fn for every later Set. Settings that live outside
// the per-invocation path, like the log level, hook in here.
func (s *Store) Subscribe(fn func(Config)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Watch loads the configuration and keeps the store in sync with the config
// file. onErr receives reload failures; the previous value stays in place.
func Watch(configPath string, onErr func(error)) (*Store, error) {
	v, cfg, err := load(configPath)
	if err != nil {
		return nil, err
	}
	store := NewStore(cfg)

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(fsnotify.Event) {
			next, err := readInto(v)
			if err != nil {
				onErr(err)
				return
			}
			store.Set(next)
		})
		v.WatchConfig()
	}
	return store, nil
}

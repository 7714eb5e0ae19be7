package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dkeye/roulette/internal/domain"
	"github.com/dkeye/roulette/internal/store/postgres"
	"github.com/dkeye/roulette/internal/store/redis"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix   = "ROULETTE"
	releaseMode = "release"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	Secret     string        `mapstructure:"secret"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	Log        Log         `mapstructure:"log"`
	Match      Match       `mapstructure:"match"`
	Chat       Chat        `mapstructure:"chat"`
	Store      Store       `mapstructure:"store"`
	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Match struct {
	DefaultMode string `mapstructure:"default_mode"`
	MaxBatch    int    `mapstructure:"max_batch"`
}

type Chat struct {
	MaxMessageLen     int           `mapstructure:"max_message_len"`
	RateLimitMessages int           `mapstructure:"rate_limit_messages"`
	RateLimitInterval time.Duration `mapstructure:"rate_limit_interval"`
	StoreTimeout      time.Duration `mapstructure:"store_timeout"`
}

// Store selects the persistence backend. Only the section matching
// Backend is used.
type Store struct {
	Backend  string          `mapstructure:"backend"`
	Postgres postgres.Config `mapstructure:"postgres"`
	Redis    redis.Config    `mapstructure:"redis"`
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

// WebRTC converts the configured servers into the shape browsers and pion expect.
func (c *Config) WebRTC() []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for _, s := range c.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

// DefaultMode returns the parsed match.default_mode.
func (c *Config) DefaultMode() domain.Mode {
	m, err := domain.ParseMode(c.Match.DefaultMode, domain.ModeVideo)
	if err != nil {
		return domain.ModeVideo
	}
	return m
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", releaseMode)
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("match.default_mode", string(domain.ModeVideo))
	v.SetDefault("match.max_batch", 256)

	v.SetDefault("chat.max_message_len", 2000)
	v.SetDefault("chat.rate_limit_messages", 10)
	v.SetDefault("chat.rate_limit_interval", "5s")
	v.SetDefault("chat.store_timeout", "5s")

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_conns", 10)
	v.SetDefault("store.redis.address", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "roulette")
	v.SetDefault("store.redis.max_messages", 100000)

	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// Load reads the config file named by --config, or config/config.<CONFIG_ENV>.yaml
// when the flag is absent. ROULETTE_* environment variables override file values.
func Load(args []string) (*Config, error) {
	fset := pflag.NewFlagSet("roulette", pflag.ContinueOnError)
	fset.String("config", "", "path to a yaml config file")
	fset.Int("port", 8080, "http listen port")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	fileName, _ := fset.GetString("config")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) && !errors.As(err, new(viper.ConfigFileNotFoundError)) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := fset.Lookup("port"); f != nil && f.Changed {
		if err := v.BindPFlag("port", f); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("store", cfg.Store.Backend).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := domain.ParseMode(c.Match.DefaultMode, domain.ModeVideo); err != nil {
		return fmt.Errorf("match.default_mode: %w", err)
	}
	if c.Secret == "" {
		if c.Mode == releaseMode {
			return errors.New("secret is required in release mode")
		}
		// sessions only survive this process
		c.Secret = uuid.NewString()
		log.Warn().Str("module", "config").Msg("no secret configured, using a random one")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.Match.MaxBatch <= 0 {
		c.Match.MaxBatch = 1
	}
	return nil
}

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Events  EventsConfig  `mapstructure:"events"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Trading TradingConfig `mapstructure:"trading"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type LedgerConfig struct {
	// Starting balance for users created on first reference.
	InitialBalance string `mapstructure:"initial_balance"`
	// Default faucet credit when the request omits an amount.
	FaucetAmount string `mapstructure:"faucet_amount"`
}

type SweepConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron spec (seconds field supported) for the auto-close/resolve sweep.
	Schedule string `mapstructure:"schedule"`
	// Max markets examined per sweep pass.
	BatchSize int `mapstructure:"batch_size"`
}

type EventsConfig struct {
	// Per-subscriber buffered channel size; events are dropped when the buffer is full.
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
	// SSE heartbeat interval.
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TradingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("ledger.initial_balance", "1000.000000")
	v.SetDefault("ledger.faucet_amount", "1000.000000")
	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "@every 15s")
	v.SetDefault("sweep.batch_size", 200)
	v.SetDefault("events.subscriber_buffer", 32)
	v.SetDefault("events.heartbeat", "25s")
	v.SetDefault("seed.enabled", true)
	v.SetDefault("trading.enabled", true)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

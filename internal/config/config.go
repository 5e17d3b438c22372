package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Cron       CronConfig       `mapstructure:"cron"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Intent     IntentConfig     `mapstructure:"intent"`
	Clearing   ClearingConfig   `mapstructure:"clearing"`
	Settlement SettlementConfig `mapstructure:"settlement"`
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

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ClearingSweep string `mapstructure:"clearing_sweep"`
	ExpirySweep   string `mapstructure:"expiry_sweep"`
}

type ExecutorConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	StreamURL string        `mapstructure:"stream_url"`
}

type IntentConfig struct {
	ChainID           int64  `mapstructure:"chain_id"`
	VerifyingContract string `mapstructure:"verifying_contract"`
}

type ClearingConfig struct {
	SweepBatchSize int `mapstructure:"sweep_batch_size"`
}

type SettlementConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LP")
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
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.clearing_sweep", "@every 30s")
	v.SetDefault("cron.expiry_sweep", "@every 1m")
	v.SetDefault("executor.base_url", "http://localhost:9090")
	v.SetDefault("executor.timeout", "15s")
	v.SetDefault("executor.stream_url", "")
	v.SetDefault("intent.chain_id", 8453)
	v.SetDefault("intent.verifying_contract", "")
	v.SetDefault("clearing.sweep_batch_size", 50)
	v.SetDefault("settlement.enabled", true)
	v.SetDefault("settlement.scan_interval", "10s")
	v.SetDefault("settlement.batch_size", 200)

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

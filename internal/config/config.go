package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr    string        `mapstructure:"addr"`
	DBPath  string        `mapstructure:"db_path"`
	API     APIConfig     `mapstructure:"api"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Screens ScreensConfig `mapstructure:"screens"`
	Log     LogConfig     `mapstructure:"log"`
}

// APIConfig décrit l'accès à PhimAPI.
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	ImageBaseURL  string        `mapstructure:"image_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryMax      int           `mapstructure:"retry_max"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// ScreensConfig règle le ménage des écrans (et sessions de recherche) inactifs.
type ScreensConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default renvoie la configuration par défaut surchargée par l'environnement (W2W_*).
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		v := viper.New()
		setDefaults(v)
		_ = v.Unmarshal(&cfg)
	}
	return cfg
}

// Load lit un fichier YAML optionnel puis les variables W2W_* (ex: W2W_API_BASE_URL).
// Sans fichier explicite, w2w.yaml est cherché dans . et ~/.config/w2w.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("w2w")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/w2w")
	}

	v.SetEnvPrefix("W2W")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("db_path", "w2w.db")

	v.SetDefault("api.base_url", "https://phimapi.com")
	v.SetDefault("api.image_base_url", "https://phimimg.com")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.retry_max", 2)
	v.SetDefault("api.retry_backoff", 300*time.Millisecond)
	v.SetDefault("api.rate_per_second", 8.0)
	v.SetDefault("api.burst", 4)

	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("screens.idle_ttl", 30*time.Minute)
	v.SetDefault("screens.sweep_interval", time.Minute)

	v.SetDefault("log.level", "info")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.RetryMax < 0 {
		return errors.New("api.retry_max must be >= 0")
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be > 0")
	}
	if c.Screens.SweepInterval <= 0 {
		return errors.New("screens.sweep_interval must be > 0")
	}
	return nil
}

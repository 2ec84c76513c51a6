package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	DatabaseURL   string
	AppEnv        string
	BaseURL       string
	JWTSecret     string
	RedisURL      string
	CacheTTL      time.Duration
	LogLevel      string
	AlwaysVisible []string
}

var defaults = map[string]interface{}{
	"PORT":                    "8080",
	"DATABASE_URL":            "file:biosite.sqlite",
	"APP_ENV":                 "local",
	"BASE_URL":                "http://localhost:8080",
	"JWT_SECRET":              "secret",
	"REDIS_URL":               "",
	"CACHE_TTL_SECONDS":       300,
	"LOG_LEVEL":               "info",
	"ALWAYS_VISIBLE_SECTIONS": "vcard,contact card,tarjeta",
}

// Load reads .env (if present), then an optional config.yaml, then the
// environment. Environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	return &Config{
		Port:          v.GetString("PORT"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		AppEnv:        v.GetString("APP_ENV"),
		BaseURL:       v.GetString("BASE_URL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		RedisURL:      v.GetString("REDIS_URL"),
		CacheTTL:      time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		LogLevel:      v.GetString("LOG_LEVEL"),
		AlwaysVisible: splitList(v.GetString("ALWAYS_VISIBLE_SECTIONS")),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

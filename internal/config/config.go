package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP       HTTP       `mapstructure:"http"`
	DB         DB         `mapstructure:"db"`
	JWT        JWT        `mapstructure:"jwt"`
	Admin      Admin      `mapstructure:"admin"`
	PriceFeed  PriceFeed  `mapstructure:"pricefeed"`
	WS         WS         `mapstructure:"ws"`
	Log        Log        `mapstructure:"log"`
	Settlement Settlement `mapstructure:"settlement"`
}

type HTTP struct {
	Addr      string  `mapstructure:"addr"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type DB struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

type JWT struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Admin struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type PriceFeed struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

type WS struct {
	Origin string `mapstructure:"origin"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Settlement struct {
	DefaultQuote string `mapstructure:"default_quote"`
}

// Load reads config.yml (from CONFIG_PATH or the working directory) if
// present, then lets environment variables override it: db.dsn is DB_DSN,
// pricefeed.base_url is PRICEFEED_BASE_URL and so on. A .env file is loaded
// into the environment first when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.rate_limit", 10)
	v.SetDefault("http.rate_burst", 30)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("db.migrate", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_ttl", "12h")
	v.SetDefault("pricefeed.base_url", "")
	v.SetDefault("pricefeed.timeout", "3s")
	v.SetDefault("pricefeed.rate_limit", 20)
	v.SetDefault("pricefeed.rate_burst", 5)
	v.SetDefault("ws.origin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("settlement.default_quote", "USDT")
}

func (c *Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.DB.DSN) == "" {
		missing = append(missing, "DB_DSN")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.PriceFeed.BaseURL) == "" {
		missing = append(missing, "PRICEFEED_BASE_URL")
	}
	if len(missing) > 0 {
		return errors.New("missing required env: " + strings.Join(missing, ","))
	}
	if c.Admin.JWTSecret == "" {
		c.Admin.JWTSecret = c.JWT.Secret
	}
	if c.PriceFeed.Timeout <= 0 {
		return errors.New("invalid PRICEFEED_TIMEOUT: must be positive")
	}
	if c.DB.MinConns > c.DB.MaxConns {
		c.DB.MinConns = c.DB.MaxConns
	}
	c.Settlement.DefaultQuote = strings.ToUpper(strings.TrimSpace(c.Settlement.DefaultQuote))
	return nil
}

// Package config loads forecastview settings from viper into a validated
// struct.
package config

import (
	"fmt"
	"time"

	"github.com/aouyang1/go-forecastview"
	"github.com/aouyang1/go-forecastview/cache"
	"github.com/aouyang1/go-forecastview/logging"
	"github.com/aouyang1/go-forecastview/viewport"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" default:"http://localhost:8000" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" default:"30s" validate:"gt=0"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:"localhost:6379"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix" default:"forecastview"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend" default:"memory" validate:"oneof=none memory redis"`
	TTL     time.Duration `mapstructure:"ttl" default:"300s" validate:"gte=0"`
	MaxSize int           `mapstructure:"max_size" default:"256" validate:"gt=0"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
	MetricsPath     string        `mapstructure:"metrics_path" default:"/metrics" validate:"startswith=/"`
}

type ViewportConfig struct {
	DragThreshold    float64 `mapstructure:"drag_threshold" default:"5" validate:"gte=0"`
	MaxZoom          float64 `mapstructure:"max_zoom" default:"1000" validate:"gte=1"`
	WheelSensitivity float64 `mapstructure:"wheel_sensitivity" default:"0.002" validate:"gt=0"`
	Padding          float64 `mapstructure:"padding" default:"0.05" validate:"gte=0,lt=1"`
}

type PlotConfig struct {
	Title      string `mapstructure:"title" default:"Forecast"`
	Width      string `mapstructure:"width" default:"1200px"`
	Height     string `mapstructure:"height" default:"600px"`
	AssetsHost string `mapstructure:"assets_host"`
}

type Config struct {
	Symbol      string `mapstructure:"symbol" default:"BTC/USDT" validate:"required"`
	Location    string `mapstructure:"location" default:"UTC"`
	LabelLayout string `mapstructure:"label_layout"`
	Horizon     int    `mapstructure:"horizon" validate:"gte=0"`

	API      APIConfig      `mapstructure:"api"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	Plot     PlotConfig     `mapstructure:"plot"`
	Log      logging.Config `mapstructure:"log"`

	location *time.Location
}

var validate = validator.New()

// Load applies struct defaults, overlays every value viper resolved from
// file, env and flags, then validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("setting defaults, %w", err)
	}
	if v != nil {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config, %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and resolves the label location.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating config, %w", err)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("validating config, cache.redis.addr is required for the redis backend")
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return fmt.Errorf("loading location %q, %w", c.Location, err)
	}
	c.location = loc
	return nil
}

// TimeLocation returns the resolved label location.
func (c *Config) TimeLocation() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ViewOptions converts the config into view options.
func (c *Config) ViewOptions() *forecastview.Options {
	opt := forecastview.NewDefaultOptions()
	opt.ViewportOptions = &viewport.Options{
		DragThreshold:    c.Viewport.DragThreshold,
		MaxZoom:          c.Viewport.MaxZoom,
		WheelSensitivity: c.Viewport.WheelSensitivity,
		Padding:          c.Viewport.Padding,
	}
	opt.PlotOptions = &forecastview.PlotOptions{
		Title:      c.Plot.Title,
		Width:      c.Plot.Width,
		Height:     c.Plot.Height,
		AssetsHost: c.Plot.AssetsHost,
	}
	opt.Location = c.TimeLocation()
	opt.LabelLayout = c.LabelLayout
	opt.Horizon = c.Horizon
	return opt
}

// RedisConfig converts the cache settings into a redis client config.
func (c *Config) RedisConfig() cache.RedisConfig {
	rc := cache.NewRedisConfig()
	rc.Addr = c.Cache.Redis.Addr
	rc.Password = c.Cache.Redis.Password
	rc.DB = c.Cache.Redis.DB
	rc.Prefix = c.Cache.Redis.Prefix
	return rc
}

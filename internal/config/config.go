package config

import (
	"fmt"
	"net"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

// Resolver backends selectable with RESOLVER.
const (
	ResolverYouTube = "youtube"
	ResolverYtdlp   = "ytdlp"
)

// Config is built once at startup and passed by value to whatever needs it.
type Config struct {
	Host        string   `yaml:"host" env:"HOST" env-default:"0.0.0.0"`
	Port        string   `yaml:"port" env:"PORT" env-default:"3500" validate:"required,numeric"`
	Resolver    string   `yaml:"resolver" env:"RESOLVER" env-default:"youtube" validate:"oneof=youtube ytdlp"`
	YtdlpPath   string   `yaml:"ytdlp_path" env:"YTDLP_PATH" env-default:"yt-dlp"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"*" validate:"min=1"`
	DisableUI   bool     `yaml:"disable_ui" env:"DISABLE_UI"`
	WebDev      bool     `yaml:"web_dev" env:"WEB_DEV" env-default:"false"`
	LogLevel    string   `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=verbose debug info warning warn error"`
}

// Load reads configuration from the environment, and from the YAML file at
// path first when path is non-empty. A leading ~ in path is expanded.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return cfg, fmt.Errorf("expanding config path %q: %w", path, err)
		}
		if err := cleanenv.ReadConfig(expanded, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load configuration from %s: %w", expanded, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

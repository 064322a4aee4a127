package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig is read once from the environment at startup.
type AppConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Env             string        `env:"APP_ENV" envDefault:"development"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	JWTKey          string        `env:"JWT_KEY,required,notEmpty"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Mongo MongoDBConfig
	Log   LogConfig
}

type MongoDBConfig struct {
	URI      string `env:"MONGO_URI,required,notEmpty"`
	Database string `env:"MONGO_DATABASE" envDefault:"student_admin"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
}

func NewAppConfig() (*AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		return nil, fmt.Errorf("load config: LOG_FORMAT must be json or console, got %q", cfg.Log.Format)
	}
	return &cfg, nil
}

// NewMongoDBConfig and NewLogConfig expose sections of AppConfig to the fx graph.
func NewMongoDBConfig(cfg *AppConfig) *MongoDBConfig {
	return &cfg.Mongo
}

func NewLogConfig(cfg *AppConfig) *LogConfig {
	return &cfg.Log
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

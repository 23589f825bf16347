package server

import (
	"github.com/jinzhu/configor"
)

// Config contains all required information for the initialisation of a document API server
type Config struct {
	// ApplicationToken is the token expected in the auth header. Empty disables authentication.
	ApplicationToken string `env:"APPLICATION_TOKEN"`
	AuthHeaderName   string `default:"X-Cassandra-Token"`
	// DBConnStr selects the PostgreSQL backend when set, the in-memory one otherwise
	DBConnStr       string `env:"DB_CONN_STR"`
	DefaultPageSize int    `default:"3"`
	MaxPageSize     int    `default:"20"`
	LogLevel        string `default:"info" env:"LOG_LEVEL"`
}

// LoadConfig reads the configuration files, environment variables prefixed by ASTRADOC_SERVER
// override them
func LoadConfig(paths ...string) (Config, error) {

	var cfg Config
	loader := configor.New(&configor.Config{ENVPrefix: "ASTRADOC_SERVER"})
	if err := loader.Load(&cfg, paths...); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.AuthHeaderName == "" {
		c.AuthHeaderName = "X-Cassandra-Token"
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 20
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 3
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
	return c
}

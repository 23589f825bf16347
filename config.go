package astradoc

import (
	"strings"
	"time"

	"github.com/jinzhu/configor"

	"github.com/xdbsoft/astradoc/httpclient"
)

// Config describes how to reach a document API. URI takes precedence, then BaseURL, then the
// Astra database id and region.
type Config struct {
	URI              string `env:"ASTRA_URI"`
	BaseURL          string `env:"ASTRA_BASE_URL"`
	DatabaseID       string `env:"ASTRA_DB_ID"`
	Region           string `env:"ASTRA_DB_REGION"`
	Keyspace         string `env:"ASTRA_DB_KEYSPACE"`
	ApplicationToken string `env:"ASTRA_DB_APPLICATION_TOKEN"`
	AuthHeaderName   string `default:"X-Cassandra-Token"`
	LogLevel         string `env:"ASTRA_LOG_LEVEL"`
	TimeoutSeconds   int    `default:"30"`
}

// LoadConfig reads the given configuration files (yaml, toml or json), environment variables
// override their content
func LoadConfig(paths ...string) (Config, error) {

	var cfg Config
	if err := configor.New(&configor.Config{ENVPrefix: "ASTRA"}).Load(&cfg, paths...); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ConnectionURI returns the connection string described by the configuration
func (c Config) ConnectionURI() (string, error) {
	switch {
	case len(c.URI) > 0:
		return c.URI, nil
	case len(c.BaseURL) > 0:
		return createURI(c.BaseURL, c.Keyspace, c.ApplicationToken, c.LogLevel), nil
	case len(c.DatabaseID) > 0 && len(c.Region) > 0:
		return CreateAstraURI(c.DatabaseID, c.Region, c.Keyspace, c.ApplicationToken, c.LogLevel), nil
	}
	return "", configurationError("one of URI, BaseURL or DatabaseID and Region is required")
}

// parsed resolves the connection settings. Keyspace and ApplicationToken fill what URI leaves out.
func (c Config) parsed() (ParsedURI, error) {

	var p ParsedURI
	switch {
	case len(c.URI) > 0:
		var err error
		if p, err = parseURI(c.URI); err != nil {
			return p, err
		}
	case len(c.BaseURL) > 0:
		p.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	case len(c.DatabaseID) > 0 && len(c.Region) > 0:
		p.BaseURL = httpclient.AstraURL(c.DatabaseID, c.Region)
	default:
		return p, configurationError("one of URI, BaseURL or DatabaseID and Region is required")
	}

	if len(p.Keyspace) == 0 {
		p.Keyspace = c.Keyspace
	}
	if len(p.ApplicationToken) == 0 {
		p.ApplicationToken = c.ApplicationToken
	}
	if len(p.LogLevel) == 0 {
		p.LogLevel = c.LogLevel
	}
	return p, p.validate()
}

// Connect opens a client using the configuration
func (c Config) Connect() (*Client, error) {
	p, err := c.parsed()
	if err != nil {
		return nil, err
	}
	return NewClient(p.BaseURL, ClientOptions{
		Keyspace:         p.Keyspace,
		ApplicationToken: p.ApplicationToken,
		AuthHeaderName:   c.AuthHeaderName,
		LogLevel:         p.LogLevel,
		Timeout:          time.Duration(c.TimeoutSeconds) * time.Second,
	})
}

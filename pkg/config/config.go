// Package config maps environment variables into the process configuration.
// No globals: the parsed struct is passed to the API clients and the console
// server at construction, so environments and credentials swap without code
// changes.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings for certpress.
type Config struct {
	// ServerPort is the console server's listen port.
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// APIBaseURL is the remote certificate API root.
	APIBaseURL string `env:"CERT_API_URL" envDefault:"http://localhost:3001/api"`
	// APIToken is the bearer token for authenticated endpoints.
	APIToken string `env:"CERT_API_TOKEN"`

	// UploadURL is the object-storage upload endpoint.
	UploadURL string `env:"CERT_UPLOAD_URL" envDefault:"http://localhost:3001/api/upload"`

	// FontHostURL is the origin serving /fonts/{family}.ttf. Defaults to the
	// API origin.
	FontHostURL string `env:"CERT_FONT_HOST_URL" envDefault:"http://localhost:3001"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

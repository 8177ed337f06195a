// Package config provides a centralized entrypoint for the application parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"go.yaml.in/yaml/v3"
)

// Runtime modes.
const (
	ModeService = "service"
	ModeLambda  = "lambda"
	ModeGateway = "gateway"
)

var (
	// Global is a struct that contains the global configuration.
	Global global
	// Service is a struct that contains the configuration for the service mode.
	Service service
	// Lambda is a struct that contains the configuration for the lambda mode.
	Lambda lambda
	// Client is a struct that contains the configuration for the send command.
	Client client
	// Gateway is a struct that contains the configuration for the gateway mode.
	Gateway gateway
)

type global struct {
	// Mode is the runtime mode of the application.
	Mode string `yaml:"mode,omitempty" default:"service"`
	// Logging is a struct that contains the logging configuration.
	Logging struct {
		// Verbosity is the verbosity level of the application. It represents slog levels.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace is a flag that enables the caller trace in the logger.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`
	// Diagnostics configures the sink receiving the per-request header and body records.
	Diagnostics struct {
		// Format is either "text" or "json".
		Format string `yaml:"format,omitempty" default:"text"`
	} `yaml:"diagnostics,omitempty"`
}

type service struct {
	Addr         string        `yaml:"addr,omitempty"`
	Port         string        `yaml:"port,omitempty" default:"3000"`
	Timeout      time.Duration `yaml:"timeout,omitempty" default:"5s"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes,omitempty" default:"102400"`
}

type lambda struct {
	PayloadType string `yaml:"payloadType,omitempty" default:"api-gateway-v2"`
}

type client struct {
	URL         string        `yaml:"url,omitempty" default:"http://localhost:3000/post"`
	Requests    int           `yaml:"requests,omitempty" default:"1"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty" default:"10s"`
}

type gateway struct {
	Addr         string        `yaml:"addr,omitempty"`
	Port         string        `yaml:"port,omitempty" default:"8080"`
	Timeout      time.Duration `yaml:"timeout,omitempty" default:"60s"`
	Upstream     string        `yaml:"upstream,omitempty" default:"http://localhost:3000"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes,omitempty" default:"102400"`
	// Marker is the field set on forwarded JSON objects. Empty disables it.
	Marker string `yaml:"marker,omitempty" default:"mitm-req"`
	// Guardian configures prompt screening. An empty URL disables it.
	Guardian struct {
		URL         string        `yaml:"url,omitempty"`
		Timeout     time.Duration `yaml:"timeout,omitempty" default:"10s"`
		MaxAttempts int           `yaml:"maxAttempts,omitempty" default:"3"`
		Backoff     time.Duration `yaml:"backoff,omitempty" default:"500ms"`
	} `yaml:"guardian,omitempty"`
	// RateLimit caps screened prompts to Requests per Period. Zero disables it.
	RateLimit struct {
		Requests int           `yaml:"requests,omitempty" default:"3"`
		Period   time.Duration `yaml:"period,omitempty" default:"1m"`
	} `yaml:"rateLimit,omitempty"`
}

// SetDefaults sets the default values for the configuration.
func SetDefaults() error {
	return errors.Join(
		defaults.Set(&Global),
		defaults.Set(&Service),
		defaults.Set(&Lambda),
		defaults.Set(&Client),
		defaults.Set(&Gateway),
	)
}

// Reset clears the configuration and applies the defaults again.
func Reset() error {
	Global = global{}
	Service = service{}
	Lambda = lambda{}
	Client = client{}
	Gateway = gateway{}
	return SetDefaults()
}

// LoadFromFile overlays the configuration with the content of a yaml file.
// Keys absent from the file keep their current value. A missing file is ignored.
func LoadFromFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // If the file does not exist, we ignore it.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	if !fstat.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	all := struct {
		Global  *global  `yaml:"global,omitempty"`
		Service *service `yaml:"service,omitempty"`
		Lambda  *lambda  `yaml:"lambda,omitempty"`
		Client  *client  `yaml:"client,omitempty"`
		Gateway *gateway `yaml:"gateway,omitempty"`
	}{
		Global:  &Global,
		Service: &Service,
		Lambda:  &Lambda,
		Client:  &Client,
		Gateway: &Gateway,
	}
	if err = yaml.Unmarshal(content, &all); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
	}

	return nil
}

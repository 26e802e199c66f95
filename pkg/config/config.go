// Package config loads the intake client configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/envelope"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/log"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/media"
)

// Prefix is prepended to every environment variable name.
const Prefix = "INTAKE_"

var (
	ErrMissingBaseURL      = errors.New("API base URL is required")
	ErrInvalidBaseURL      = errors.New("API base URL must be an absolute http(s) URL")
	ErrInvalidTimeout      = errors.New("request timeout must be positive")
	ErrInvalidResponseSize = errors.New("max response bytes must be positive")
)

// Config is the complete client configuration. It is read once at start and
// not modified afterwards.
type Config struct {
	APIBaseURL string `env:"API_BASE_URL"`

	EnvelopeKey string `env:"ENVELOPE_KEY" envDefault:"aBfGhIjKlMnOpQrStUvWxYz012345678"`
	EnvelopeIV  string `env:"ENVELOPE_IV" envDefault:"1234567890123456"`

	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxResponseBytes int64         `env:"MAX_RESPONSE_BYTES" envDefault:"1048576"`
	UserAgent        string        `env:"USER_AGENT" envDefault:"campus-intake/1.0"`

	ImageMaxWidth int     `env:"IMAGE_MAX_WIDTH" envDefault:"1600"`
	ImageQuality  float64 `env:"IMAGE_QUALITY" envDefault:"0.85"`
	MediaEncoding string  `env:"MEDIA_ENCODING" envDefault:"data-uri"`

	Log log.Config `envPrefix:"LOG_"`
}

// Load reads the configuration from the process environment and validates it.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in defaults for the given base URL. It fails when
// baseURL is not an absolute http(s) URL.
func Default(baseURL string) (Config, error) {
	return LoadFrom(map[string]string{Prefix + "API_BASE_URL": baseURL})
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if err := c.Keys().Validate(); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxResponseBytes <= 0 {
		return ErrInvalidResponseSize
	}
	if err := c.MediaOptions().Validate(); err != nil {
		return err
	}
	if _, err := media.ParseEncoding(c.MediaEncoding); err != nil {
		return err
	}
	return nil
}

// LoadKeys reads only the envelope key material, for tools that seal or open
// envelopes without talking to the service.
func LoadKeys() (envelope.Keys, error) {
	var k struct {
		Key string `env:"ENVELOPE_KEY" envDefault:"aBfGhIjKlMnOpQrStUvWxYz012345678"`
		IV  string `env:"ENVELOPE_IV" envDefault:"1234567890123456"`
	}
	if err := env.ParseWithOptions(&k, env.Options{Prefix: Prefix}); err != nil {
		return envelope.Keys{}, fmt.Errorf("parse env: %w", err)
	}
	keys := envelope.Keys{Key: k.Key, IV: k.IV}
	return keys, keys.Validate()
}

// Keys returns the envelope key material.
func (c Config) Keys() envelope.Keys {
	return envelope.Keys{Key: c.EnvelopeKey, IV: c.EnvelopeIV}
}

// MediaOptions returns the image normalization options.
func (c Config) MediaOptions() media.Options {
	return media.Options{MaxWidth: c.ImageMaxWidth, Quality: c.ImageQuality}
}

// Encoding returns the media encoding, defaulting to data URIs.
func (c Config) Encoding() media.Encoding {
	enc, err := media.ParseEncoding(c.MediaEncoding)
	if err != nil {
		return media.EncodingDataURI
	}
	return enc
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

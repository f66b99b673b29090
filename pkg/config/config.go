// Package config loads lmnode configuration from a TOML file, a .env file and
// LMNODE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/papercomputeco/lmnode/node"
	"github.com/papercomputeco/lmnode/pkg/imageprep"
)

const (
	// DefaultFile is looked up in the working directory when no path is given.
	DefaultFile = "lmnode.toml"

	// EnvFile names the environment variable holding the config path.
	EnvFile = "LMNODE_CONFIG"
)

// Config is the complete lmnode configuration.
type Config struct {
	// Timeout bounds a whole node invocation.
	Timeout time.Duration `toml:"timeout"`

	Server   ServerConfig  `toml:"server"`
	Defaults node.Defaults `toml:"defaults"`
	SDK      SDKConfig     `toml:"sdk"`
	HTTP     HTTPConfig    `toml:"http"`
	Image    ImageConfig   `toml:"image"`
}

// ServerConfig configures the host-facing HTTP server.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// SDKConfig configures the websocket transport.
type SDKConfig struct {
	Enabled          bool   `toml:"enabled"`
	ClientIdentifier string `toml:"client_identifier"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Path    string        `toml:"path"`
	Timeout time.Duration `toml:"timeout"`
}

// ImageConfig configures image preparation.
type ImageConfig struct {
	MaxDimension int  `toml:"max_dimension"`
	JPEGQuality  int  `toml:"jpeg_quality"`
	Strict       bool `toml:"strict"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Timeout:  node.DefaultTimeout,
		Server:   ServerConfig{Listen: ":8188"},
		Defaults: node.DefaultValues(),
		SDK:      SDKConfig{Enabled: true},
		Image:    ImageConfig{JPEGQuality: imageprep.DefaultQuality},
	}
}

// ResolvePath picks the config file: the explicit path, then $LMNODE_CONFIG,
// then DefaultFile if it exists. An empty result means built-in defaults.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvFile); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// LoadDotEnv loads environment variables from path. Missing files are ignored.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from LMNODE_* variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = b
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("LMNODE_LISTEN", &c.Server.Listen)
	str("LMNODE_SERVER_ADDRESS", &c.Defaults.ServerAddress)
	str("LMNODE_MODEL_ID", &c.Defaults.ModelID)
	str("LMNODE_HTTP_PATH", &c.HTTP.Path)
	str("LMNODE_CLIENT_IDENTIFIER", &c.SDK.ClientIdentifier)

	return errors.Join(
		boolean("LMNODE_SDK_ENABLED", &c.SDK.Enabled),
		boolean("LMNODE_USE_SDK", &c.Defaults.UseSDK),
		boolean("LMNODE_IMAGE_STRICT", &c.Image.Strict),
		duration("LMNODE_TIMEOUT", &c.Timeout),
		duration("LMNODE_HTTP_TIMEOUT", &c.HTTP.Timeout),
	)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http.timeout must not be negative"))
	}
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if c.Image.MaxDimension < 0 {
		errs = append(errs, errors.New("image.max_dimension must not be negative"))
	}
	if c.Image.JPEGQuality < 0 || c.Image.JPEGQuality > 100 {
		errs = append(errs, errors.New("image.jpeg_quality must be between 0 and 100"))
	}
	if t := c.Defaults.Temperature; t < 0 || t > 1 {
		errs = append(errs, errors.New("defaults.temperature must be between 0 and 1"))
	}
	if m := c.Defaults.MaxTokens; m < 1 || m > 4096 {
		errs = append(errs, errors.New("defaults.max_tokens must be between 1 and 4096"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// NodeConfig returns the node configuration.
func (c *Config) NodeConfig() node.Config {
	return node.Config{
		SDKEnabled:       c.SDK.Enabled,
		ClientIdentifier: c.SDK.ClientIdentifier,
		HTTPPath:         c.HTTP.Path,
		HTTPTimeout:      c.HTTP.Timeout,
		Timeout:          c.Timeout,
		Image: imageprep.Options{
			MaxDimension: c.Image.MaxDimension,
			Quality:      c.Image.JPEGQuality,
		},
		StrictImages: c.Image.Strict,
	}
}

// NodeDefaults returns the socket defaults.
func (c *Config) NodeDefaults() node.Defaults {
	return c.Defaults
}

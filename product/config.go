// Package product resolves the output files of the products
// from a YAML product configuration.
package product

import (
	"errors"
	"fmt"
	"os"

	"github.com/squadracorsepolito/satwriter/writer"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("product: invalid config")

// Format is an output format of a product and the writer producing it.
type Format struct {
	Format string          `yaml:"format"`
	Writer writer.WriterID `yaml:"writer"`
}

// Settings are the output settings shared by the config, an area or a product.
// Unset fields are inherited from the enclosing level.
type Settings struct {
	OutputDir       string   `yaml:"output_dir"`
	FilenamePattern string   `yaml:"fname_pattern"`
	Formats         []Format `yaml:"formats"`
}

func (s Settings) merge(over Settings) Settings {
	if over.OutputDir != "" {
		s.OutputDir = over.OutputDir
	}
	if over.FilenamePattern != "" {
		s.FilenamePattern = over.FilenamePattern
	}
	if len(over.Formats) > 0 {
		s.Formats = over.Formats
	}
	return s
}

type Area struct {
	Settings `yaml:",inline"`

	Products map[string]*Settings `yaml:"products"`
}

// Config is the product configuration carried by every data object
// under the product_config info key.
type Config struct {
	Settings `yaml:",inline"`

	Areas map[string]*Area `yaml:"areas"`
}

// Parse decodes and validates a YAML product configuration.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads the product configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func (c *Config) validate() error {
	if c.FilenamePattern == "" {
		return fmt.Errorf("%w: fname_pattern is required", ErrInvalidConfig)
	}

	if len(c.Formats) == 0 {
		return fmt.Errorf("%w: at least one format is required", ErrInvalidConfig)
	}

	if _, err := parsePattern(c.FilenamePattern); err != nil {
		return err
	}

	for areaName, area := range c.Areas {
		if area == nil {
			return fmt.Errorf("%w: area %q is empty", ErrInvalidConfig, areaName)
		}

		for productName, product := range area.Products {
			if product == nil || product.FilenamePattern == "" {
				continue
			}

			if _, err := parsePattern(product.FilenamePattern); err != nil {
				return fmt.Errorf("product %q of area %q: %w", productName, areaName, err)
			}
		}
	}

	return nil
}

// resolve returns the settings of a product in an area.
func (c *Config) resolve(areaName, product string) Settings {
	settings := c.Settings

	area, ok := c.Areas[areaName]
	if !ok {
		return settings
	}
	settings = settings.merge(area.Settings)

	if productSettings, ok := area.Products[product]; ok && productSettings != nil {
		settings = settings.merge(*productSettings)
	}

	return settings
}

package product

import (
	"fmt"
	"path/filepath"

	"github.com/squadracorsepolito/satwriter/writer"
)

// Pattern fields filled from the product context.
const (
	FieldProductName = "productname"
	FieldAreaName    = "areaname"
	FieldFormat      = "format"
)

// timeFields are the info keys holding the nominal time, in order of preference.
var timeFields = []string{"time_slot", "nominal_time", "start_time"}

var _ writer.Naming = (*Naming)(nil)

// Naming implements [writer.Naming] for a [Config].
type Naming struct{}

func NewNaming() *Naming {
	return &Naming{}
}

// TimeField returns the first time key present in info.
func (n *Naming) TimeField(info writer.Info) string {
	for _, field := range timeFields {
		if _, ok := info[field]; ok {
			return field
		}
	}
	return timeFields[0]
}

func asConfig(productConfig any) (*Config, error) {
	cfg, ok := productConfig.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("%w: unexpected product config %T", ErrInvalidConfig, productConfig)
	}
	return cfg, nil
}

// Filenames composes one filename per configured format of the product.
func (n *Naming) Filenames(info writer.Info, productConfig any, product string) ([]string, error) {
	cfg, err := asConfig(productConfig)
	if err != nil {
		return nil, err
	}

	settings := cfg.resolve(info.AreaName(), product)

	fields := make(map[string]any, len(info)+3)
	for key, value := range info {
		fields[key] = value
	}
	fields[FieldProductName] = product
	fields[FieldAreaName] = info.AreaName()

	filenames := make([]string, 0, len(settings.Formats))
	for _, format := range settings.Formats {
		fields[FieldFormat] = format.Format

		name, err := compose(settings.FilenamePattern, fields)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", product, err)
		}

		filenames = append(filenames, filepath.Join(settings.OutputDir, name))
	}

	return filenames, nil
}

// Writers returns the writer of every configured format of the product.
func (n *Naming) Writers(productConfig any, product, areaName string) ([]writer.WriterID, error) {
	cfg, err := asConfig(productConfig)
	if err != nil {
		return nil, err
	}

	settings := cfg.resolve(areaName, product)

	writers := make([]writer.WriterID, 0, len(settings.Formats))
	for _, format := range settings.Formats {
		writers = append(writers, format.Writer)
	}

	return writers, nil
}

package writer

const defaultCompression = 6

// SaveSettings are the options passed through to every save.
type SaveSettings struct {
	Compression int               `yaml:"compression"`
	Tags        map[string]string `yaml:"tags"`
	Format      string            `yaml:"fformat"`
	GDALOptions map[string]string `yaml:"gdal_options"`
	BlockSize   int               `yaml:"blocksize"`
}

// DefaultSaveSettings returns the settings used when none are given.
func DefaultSaveSettings() *SaveSettings {
	return &SaveSettings{
		Compression: defaultCompression,
	}
}

// SaveOptions are the per save options derived from [SaveSettings].
type SaveOptions struct {
	Compression int
	Tags        map[string]string
	Format      string
	GDALOptions map[string]string
	BlockSize   int
}

// SaveOptions returns the options passed to [DataObject.SaveDataset].
func (s *SaveSettings) SaveOptions() *SaveOptions {
	if s == nil {
		return DefaultSaveSettings().SaveOptions()
	}

	return &SaveOptions{
		Compression: s.Compression,
		Tags:        s.Tags,
		Format:      s.Format,
		GDALOptions: s.GDALOptions,
		BlockSize:   s.BlockSize,
	}
}

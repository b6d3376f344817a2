package product

import (
	"testing"
	"time"

	"github.com/squadracorsepolito/satwriter/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
output_dir: /data/out
fname_pattern: "{time_slot:%Y%m%d_%H%M}_{areaname}_{productname}.{format}"
formats:
  - format: raw
    writer: raw
areas:
  euro4:
    output_dir: /data/euro4
    products:
      overview:
        formats:
          - format: png
            writer: png
          - format: raw
            writer: raw
      ir108:
        fname_pattern: "{platform}_{orbit:05d}_{productname}.{format}"
`

func Test_Parse(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg, err := Parse([]byte(testConfig))
	require.NoError(err)

	assert.Equal("/data/out", cfg.OutputDir)
	assert.Len(cfg.Formats, 1)
	require.Contains(cfg.Areas, "euro4")
	assert.Len(cfg.Areas["euro4"].Products["overview"].Formats, 2)
}

func Test_Parse_Invalid(t *testing.T) {
	inputs := []string{
		"formats: [{format: raw}]",
		"fname_pattern: a.{format}",
		"fname_pattern: '{unterminated'\nformats: [{format: raw}]",
		"fname_pattern: 'a{}'\nformats: [{format: raw}]",
		"fname_pattern: [",
	}

	for _, input := range inputs {
		_, err := Parse([]byte(input))
		assert.ErrorIs(t, err, ErrInvalidConfig, input)
	}
}

func Test_Naming_Filenames(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg, err := Parse([]byte(testConfig))
	require.NoError(err)

	naming := NewNaming()

	info := writer.Info{
		writer.InfoKeyAreaName: "euro4",
		"time_slot":            time.Date(2024, 3, 1, 12, 15, 0, 0, time.UTC),
		"platform":             "metop-b",
		"orbit":                42,
	}

	filenames, err := naming.Filenames(info, cfg, "overview")
	require.NoError(err)
	assert.Equal([]string{
		"/data/euro4/20240301_1215_euro4_overview.png",
		"/data/euro4/20240301_1215_euro4_overview.raw",
	}, filenames)

	filenames, err = naming.Filenames(info, cfg, "ir108")
	require.NoError(err)
	assert.Equal([]string{"/data/euro4/metop-b_00042_ir108.raw"}, filenames)

	// Unknown areas use the common settings
	info[writer.InfoKeyAreaName] = "global"
	filenames, err = naming.Filenames(info, cfg, "overview")
	require.NoError(err)
	assert.Equal([]string{"/data/out/20240301_1215_global_overview.raw"}, filenames)

	delete(info, "time_slot")
	_, err = naming.Filenames(info, cfg, "overview")
	assert.ErrorIs(err, ErrMissingField)

	_, err = naming.Filenames(info, "not a config", "overview")
	assert.ErrorIs(err, ErrInvalidConfig)
}

func Test_Naming_Writers(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg, err := Parse([]byte(testConfig))
	require.NoError(err)

	naming := NewNaming()

	writers, err := naming.Writers(cfg, "overview", "euro4")
	require.NoError(err)
	assert.Equal([]writer.WriterID{"png", "raw"}, writers)

	writers, err = naming.Writers(cfg, "ir108", "euro4")
	require.NoError(err)
	assert.Equal([]writer.WriterID{"raw"}, writers)
}

func Test_Naming_TimeField(t *testing.T) {
	assert := assert.New(t)

	naming := NewNaming()

	assert.Equal("time_slot", naming.TimeField(writer.Info{}))
	assert.Equal("start_time", naming.TimeField(writer.Info{"start_time": time.Now()}))
	assert.Equal("nominal_time", naming.TimeField(writer.Info{"start_time": 1, "nominal_time": 2}))
}

func Test_compose(t *testing.T) {
	assert := assert.New(t)

	name, err := compose("plain", nil)
	assert.NoError(err)
	assert.Equal("plain", name)

	name, err = compose("{a}-{b:.2f}-{c}", map[string]any{
		"a": "x",
		"b": 1.5,
		"c": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	assert.NoError(err)
	assert.Equal("x-1.50-20240102T030405", name)
}

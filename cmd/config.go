package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/squadracorsepolito/satwriter/internal/telemetry"
	"github.com/squadracorsepolito/satwriter/pubsub"
	"github.com/squadracorsepolito/satwriter/storage"
	"github.com/squadracorsepolito/satwriter/writer"
	"gopkg.in/yaml.v3"
)

type telemetryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ServiceName    string        `yaml:"service_name"`
	SampleRatio    float64       `yaml:"sample_ratio"`
	MetricInterval time.Duration `yaml:"metric_interval"`
}

type writerConfig struct {
	Topic           string               `yaml:"topic"`
	Port            int                  `yaml:"port"`
	Nameservers     []string             `yaml:"nameservers"`
	PublisherName   string               `yaml:"publisher_name"`
	PollInterval    time.Duration        `yaml:"poll_interval"`
	SaveErrorPolicy string               `yaml:"save_error_policy"`
	SaveSettings    *writer.SaveSettings `yaml:"save_settings"`
}

type publisherConfig struct {
	Backend string `yaml:"backend"`

	Redis struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	QuestDB struct {
		Table string `yaml:"table"`
	} `yaml:"questdb"`
}

type storageConfig struct {
	Backend string `yaml:"backend"`

	S3 struct {
		Bucket   string `yaml:"bucket"`
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"s3"`
}

type demoConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	AreaName string        `yaml:"area_name"`
	Products []string      `yaml:"products"`
	Width    int           `yaml:"width"`
	Height   int           `yaml:"height"`
}

type config struct {
	LogLevel      string          `yaml:"log_level"`
	ProductConfig string          `yaml:"product_config"`
	QueueSize     int             `yaml:"queue_size"`
	Telemetry     telemetryConfig `yaml:"telemetry"`
	Writer        writerConfig    `yaml:"writer"`
	Publisher     publisherConfig `yaml:"publisher"`
	Storage       storageConfig   `yaml:"storage"`
	Demo          demoConfig      `yaml:"demo"`
}

func defaultConfig() *config {
	writerCfg := writer.NewDefaultConfig()
	telCfg := telemetry.NewDefaultConfig()

	return &config{
		LogLevel:  "info",
		QueueSize: 16,
		Telemetry: telemetryConfig{
			ServiceName:    telCfg.ServiceName,
			SampleRatio:    telCfg.SampleRatio,
			MetricInterval: telCfg.MetricInterval,
		},
		Writer: writerConfig{
			PublisherName:   writerCfg.PublisherName,
			PollInterval:    writerCfg.PollInterval,
			SaveErrorPolicy: writerCfg.SaveErrorPolicy.String(),
			SaveSettings:    writerCfg.SaveSettings,
		},
		Publisher: publisherConfig{Backend: "bus"},
		Storage:   storageConfig{Backend: "fs"},
		Demo: demoConfig{
			Interval: 10 * time.Second,
			AreaName: "euro4",
			Products: []string{"overview"},
			Width:    256,
			Height:   256,
		},
	}
}

func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

func (c *config) logLevel() (slog.Level, error) {
	level := slog.LevelInfo
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

func (c *config) telemetryConfig() *telemetry.Config {
	cfg := telemetry.NewDefaultConfig()
	cfg.ServiceName = c.Telemetry.ServiceName
	cfg.SampleRatio = c.Telemetry.SampleRatio
	cfg.MetricInterval = c.Telemetry.MetricInterval
	return cfg
}

func (c *config) writerConfig() (*writer.Config, error) {
	cfg := writer.NewDefaultConfig()

	cfg.Topic = c.Writer.Topic
	cfg.Port = c.Writer.Port
	cfg.Nameservers = c.Writer.Nameservers
	cfg.PublisherName = c.Writer.PublisherName
	cfg.PollInterval = c.Writer.PollInterval
	cfg.OutputQueueSize = c.QueueSize

	if c.Writer.SaveSettings != nil {
		cfg.SaveSettings = c.Writer.SaveSettings
	}

	switch c.Writer.SaveErrorPolicy {
	case "", writer.SaveErrorAbortObject.String():
		cfg.SaveErrorPolicy = writer.SaveErrorAbortObject
	case writer.SaveErrorSkipFile.String():
		cfg.SaveErrorPolicy = writer.SaveErrorSkipFile
	default:
		return nil, fmt.Errorf("unknown save error policy %q", c.Writer.SaveErrorPolicy)
	}

	return cfg, nil
}

func (c *config) dialer() (pubsub.Dialer, error) {
	switch c.Publisher.Backend {
	case "", "bus":
		return pubsub.NewBus(), nil

	case "kafka":
		return pubsub.NewKafkaDialer(pubsub.DefaultKafkaConfig()), nil

	case "redis":
		cfg := pubsub.DefaultRedisConfig()
		cfg.Username = c.Publisher.Redis.Username
		cfg.Password = c.Publisher.Redis.Password
		cfg.DB = c.Publisher.Redis.DB
		return pubsub.NewRedisDialer(cfg), nil

	case "questdb":
		cfg := pubsub.DefaultQuestDBConfig()
		if c.Publisher.QuestDB.Table != "" {
			cfg.Table = c.Publisher.QuestDB.Table
		}
		return pubsub.NewQuestDBDialer(cfg), nil
	}

	return nil, fmt.Errorf("unknown publisher backend %q", c.Publisher.Backend)
}

func (c *config) store(ctx context.Context) (storage.Store, error) {
	switch c.Storage.Backend {
	case "", "fs":
		return storage.NewOsFS(), nil

	case "s3":
		cfg := storage.NewDefaultS3Config()
		cfg.Bucket = c.Storage.S3.Bucket
		cfg.Endpoint = c.Storage.S3.Endpoint
		cfg.Prefix = c.Storage.S3.Prefix
		if c.Storage.S3.Region != "" {
			cfg.Region = c.Storage.S3.Region
		}
		return storage.NewS3FromConfig(ctx, cfg)
	}

	return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
}

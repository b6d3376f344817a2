package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/squadracorsepolito/satwriter/internal"
	"github.com/squadracorsepolito/satwriter/internal/telemetry"
	"github.com/squadracorsepolito/satwriter/product"
	"github.com/squadracorsepolito/satwriter/pubsub"
	"github.com/squadracorsepolito/satwriter/writer"
)

func main() {
	configPath := flag.String("config", "satwriter.yaml", "path of the configuration file")
	flag.Parse()

	l := internal.NewLogger("cmd", "satwriter")

	if err := run(*configPath, l); err != nil {
		l.Error("satwriter failed", err)
		os.Exit(1)
	}
}

func run(configPath string, l *internal.Logger) error {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelCtx()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := cfg.logLevel()
	if err != nil {
		return err
	}
	internal.SetLogLevel(level)

	if cfg.Telemetry.Enabled {
		providers, err := telemetry.Init(ctx, cfg.telemetryConfig())
		if err != nil {
			return err
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := providers.Shutdown(shutdownCtx); err != nil {
				l.Error("failed to shutdown telemetry", err)
			}
		}()
	}

	productConfig, err := product.Load(cfg.ProductConfig)
	if err != nil {
		return err
	}

	writerCfg, err := cfg.writerConfig()
	if err != nil {
		return err
	}

	dialer, err := cfg.dialer()
	if err != nil {
		return err
	}

	store, err := cfg.store(ctx)
	if err != nil {
		return err
	}

	if bus, ok := dialer.(*pubsub.Bus); ok && writerCfg.Topic != "" {
		events, cancel := bus.Subscribe(writerCfg.Topic)
		defer cancel()

		go logEvents(events, l)
	}

	queue := writer.NewQueue(cfg.QueueSize)
	defer queue.Close()

	// The container outlives the signal context so that
	// a save in progress completes on shutdown.
	container := writer.NewContainer(context.WithoutCancel(ctx), writerCfg, product.NewNaming(), dialer)
	defer container.Stop()

	container.SetInputQueue(queue)

	if cfg.Demo.Enabled {
		go newDemoSource(&cfg.Demo, productConfig, store).run(ctx, queue)
	}

	l.Info("running", "topic", writerCfg.Topic, "backend", cfg.Publisher.Backend)

	<-ctx.Done()

	l.Info("shutting down")

	return container.Err()
}

func logEvents(events <-chan *pubsub.Message, l *internal.Logger) {
	for msg := range events {
		event := writer.Event{}
		if err := msg.UnmarshalData(&event); err != nil {
			l.Error("failed to decode completion event", err)
			continue
		}

		l.Info("file written", "uri", event.URI, "product", event.ProductName, "area", event.Area.AreaID)
	}
}

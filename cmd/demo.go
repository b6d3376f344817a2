package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/squadracorsepolito/satwriter/connector"
	"github.com/squadracorsepolito/satwriter/internal"
	"github.com/squadracorsepolito/satwriter/product"
	"github.com/squadracorsepolito/satwriter/scene"
	"github.com/squadracorsepolito/satwriter/storage"
	"github.com/squadracorsepolito/satwriter/writer"
	"go.opentelemetry.io/otel/attribute"
)

// demoSource pushes a synthetic scene into the queue at every tick.
type demoSource struct {
	tel *internal.Telemetry

	cfg           *demoConfig
	productConfig *product.Config
	store         storage.Store
	encoders      *scene.Registry
}

func newDemoSource(cfg *demoConfig, productConfig *product.Config, store storage.Store) *demoSource {
	return &demoSource{
		tel: internal.NewTelemetry("ingress", "demo"),

		cfg:           cfg,
		productConfig: productConfig,
		store:         store,
		encoders:      scene.DefaultRegistry(),
	}
}

func (s *demoSource) run(ctx context.Context, queue writer.Queue) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	triggerCount := 0
	for {
		select {
		case <-ctx.Done():
			return

		case trigger := <-ticker.C:
			triggerCount++

			sc, err := s.newScene(ctx, trigger.UTC(), triggerCount)
			if err != nil {
				s.tel.LogError("failed to create scene", err)
				continue
			}

			err = queue.TryWrite(sc)
			switch {
			case errors.Is(err, connector.ErrFull):
				s.tel.LogWarn("queue is full, dropping scene", "trigger_number", triggerCount)
				sc.Release()

			case err != nil:
				s.tel.LogError("failed to push scene", err)
				return
			}
		}
	}
}

func (s *demoSource) newScene(ctx context.Context, timeSlot time.Time, count int) (*scene.Scene, error) {
	_, span := s.tel.NewTrace(ctx, "create demo scene")
	defer span.End()

	span.SetAttributes(attribute.Int("trigger_number", count))

	sc := scene.New(writer.Info{
		writer.InfoKeyProductConfig: s.productConfig,
		writer.InfoKeyAreaName:      s.cfg.AreaName,
		"time_slot":                 timeSlot,
		"platform":                  "demo",
		"orbit":                     count,
	}, s.store, s.encoders)

	area := &writer.Area{
		Name:   s.cfg.AreaName,
		AreaID: s.cfg.AreaName,
		ProjID: "demo",
		Proj4:  "+proj=longlat +datum=WGS84 +no_defs",
		XSize:  s.cfg.Width,
		YSize:  s.cfg.Height,
	}

	for idx, productName := range s.cfg.Products {
		ds := scene.NewDataset(s.cfg.Width, s.cfg.Height)

		// A moving wave so consecutive scenes differ
		phase := float64(count) / 10
		for y := range ds.Height {
			for x := range ds.Width {
				ds.Data[y*ds.Width+x] = float32(math.Sin(float64(x)/16+phase) * math.Cos(float64(y)/16+float64(idx)))
			}
		}

		id := writer.DatasetID(fmt.Sprintf("%s_%d", productName, count))
		if err := sc.AddProduct(productName, id, ds, area); err != nil {
			return nil, err
		}
	}

	return sc, nil
}

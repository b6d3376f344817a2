package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/squadracorsepolito/satwriter/internal"
	"github.com/squadracorsepolito/satwriter/pubsub"
)

const testPollInterval = 10 * time.Millisecond

var errSave = errors.New("save failed")

func newTestTelemetry() *internal.Telemetry {
	return internal.NewTelemetryWithLogger(
		internal.NewLoggerWithHandler("writer", "test", slog.NewTextHandler(io.Discard, nil)),
	)
}

func newTestConfig(topic string) *Config {
	cfg := NewDefaultConfig()
	cfg.Topic = topic
	cfg.PollInterval = testPollInterval
	return cfg
}

// recorder keeps the ordered list of calls made by the worker.
type recorder struct {
	mux   sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) get() []string {
	r.mux.Lock()
	defer r.mux.Unlock()

	return append([]string(nil), r.calls...)
}

// testProductConfig maps every product to its files and writers.
type testProductConfig struct {
	filenames map[string][]string
	writers   map[string][]WriterID
}

type testNaming struct{}

func (testNaming) TimeField(info Info) string {
	if _, ok := info["start_time"]; ok {
		return "start_time"
	}
	return "time_slot"
}

func (testNaming) Filenames(_ Info, productConfig any, product string) ([]string, error) {
	cfg, ok := productConfig.(*testProductConfig)
	if !ok {
		return nil, errors.New("bad product config")
	}
	return cfg.filenames[product], nil
}

func (testNaming) Writers(productConfig any, product, _ string) ([]WriterID, error) {
	cfg := productConfig.(*testProductConfig)
	return cfg.writers[product], nil
}

type testObject struct {
	rec *recorder

	info  Info
	areas map[string]*Area

	// save is called for every SaveDataset when set
	save func(filename string) error

	released atomic.Int32
}

func newTestObject(rec *recorder, name string, products ...string) *testObject {
	cfg := &testProductConfig{
		filenames: make(map[string][]string),
		writers:   make(map[string][]WriterID),
	}

	ids := make([]DatasetID, 0, len(products))
	areas := make(map[string]*Area)
	for i, product := range products {
		ids = append(ids, DatasetID(fmt.Sprint(i+1)))
		cfg.filenames[product] = []string{filepath.Join("/out", name+"_"+product+".tif")}
		cfg.writers[product] = []WriterID{"geotiff"}
		areas[product] = &Area{
			Name:   "Europe",
			AreaID: "euro4",
			ProjID: "stere",
			Proj4:  "+proj=stere +lat_0=90",
			XSize:  1024,
			YSize:  768,
		}
	}

	return &testObject{
		rec: rec,
		info: Info{
			InfoKeyProductConfig: cfg,
			InfoKeyProducts:      products,
			InfoKeyDatasetIDs:    ids,
			InfoKeyAreaName:      "euro4",
			"time_slot":          "2024-03-01T12:00:00",
		},
		areas: areas,
	}
}

func (o *testObject) productConfig() *testProductConfig {
	return o.info[InfoKeyProductConfig].(*testProductConfig)
}

func (o *testObject) Info() Info {
	return o.info
}

func (o *testObject) Area(product string) (*Area, error) {
	area, ok := o.areas[product]
	if !ok {
		return nil, errors.New("unknown product")
	}
	return area, nil
}

func (o *testObject) SaveDataset(_ context.Context, id DatasetID, filename string, writer WriterID, _ *SaveOptions) error {
	if o.save != nil {
		if err := o.save(filename); err != nil {
			o.rec.add("fail %s", filename)
			return err
		}
	}

	o.rec.add("save %s %s %s", id, filepath.Base(filename), writer)
	return nil
}

func (o *testObject) Release() {
	o.released.Add(1)
}

// testDialer records the sessions and the published messages.
type testDialer struct {
	rec *recorder

	opened atomic.Int32
	closed atomic.Int32

	openErr    error
	publishErr error

	mux      sync.Mutex
	messages []*pubsub.Message
}

func (d *testDialer) Open(_ context.Context, _ *pubsub.Config) (pubsub.Session, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}

	d.opened.Add(1)
	return &testSession{dialer: d}, nil
}

func (d *testDialer) getMessages() []*pubsub.Message {
	d.mux.Lock()
	defer d.mux.Unlock()

	return append([]*pubsub.Message(nil), d.messages...)
}

type testSession struct {
	dialer *testDialer
}

func (s *testSession) Publish(_ context.Context, msg *pubsub.Message) error {
	if s.dialer.publishErr != nil {
		return s.dialer.publishErr
	}

	event := Event{}
	if err := msg.UnmarshalData(&event); err != nil {
		return err
	}

	s.dialer.mux.Lock()
	s.dialer.messages = append(s.dialer.messages, msg)
	s.dialer.mux.Unlock()

	s.dialer.rec.add("publish %s %s", event.UID, event.ProductName)
	return nil
}

func (s *testSession) Close() error {
	s.dialer.closed.Add(1)
	return nil
}

// countingQueue counts the reads the worker attempts on a queue.
type countingQueue struct {
	Queue

	reads atomic.Int64
}

func (q *countingQueue) ReadContext(ctx context.Context) (DataObject, error) {
	q.reads.Add(1)
	return q.Queue.ReadContext(ctx)
}

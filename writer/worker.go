package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/squadracorsepolito/satwriter/connector"
	"github.com/squadracorsepolito/satwriter/internal"
	"github.com/squadracorsepolito/satwriter/pubsub"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// queueRef lets an interface value live in an atomic pointer.
// Its replaced context is cancelled once another queue takes its place.
type queueRef struct {
	queue Queue

	replaced context.Context
	replace  context.CancelFunc

	// reading is held while dequeuing from this queue.
	reading sync.Mutex
}

func newQueueRef(queue Queue) *queueRef {
	ctx, cancel := context.WithCancel(context.Background())
	return &queueRef{
		queue:    queue,
		replaced: ctx,
		replace:  cancel,
	}
}

// Worker drains a [Queue], saves every product of the received
// data objects and publishes a completion event per saved file.
//
// A Worker is single use: once [Worker.Run] returns it cannot be run again.
type Worker struct {
	tel *internal.Telemetry

	cfg         *Config
	saveOptions *SaveOptions

	naming Naming
	dialer pubsub.Dialer

	queue atomic.Pointer[queueRef]

	running       atomic.Bool
	stopRequested atomic.Bool

	// Telemetry metrics
	processedObjects metric.Int64Counter
	skippedObjects   metric.Int64Counter
	savedFiles       metric.Int64Counter
	saveErrors       metric.Int64Counter
	publishedEvents  metric.Int64Counter
	publishErrors    metric.Int64Counter
	saveDuration     metric.Int64Histogram
}

// NewWorker returns a new [Worker] reading from queue, which may be nil.
func NewWorker(tel *internal.Telemetry, cfg *Config, naming Naming, dialer pubsub.Dialer, queue Queue) *Worker {
	w := &Worker{
		tel: tel,

		cfg:         cfg,
		saveOptions: cfg.SaveSettings.SaveOptions(),

		naming: naming,
		dialer: dialer,
	}

	w.SetQueue(queue)
	w.initMetrics()

	return w
}

func (w *Worker) initMetrics() {
	w.processedObjects = w.tel.NewCounter("processed_objects")
	w.skippedObjects = w.tel.NewCounter("skipped_objects")
	w.savedFiles = w.tel.NewCounter("saved_files")
	w.saveErrors = w.tel.NewCounter("save_errors")
	w.publishedEvents = w.tel.NewCounter("published_events")
	w.publishErrors = w.tel.NewCounter("publish_errors")
	w.saveDuration = w.tel.NewHistogram("save_duration", metric.WithUnit("ms"))
}

// SetQueue replaces the queue the worker reads from.
// A read pending on the previous queue is interrupted, and once SetQueue
// returns nothing else is dequeued from the previous queue.
func (w *Worker) SetQueue(queue Queue) {
	prev := w.queue.Swap(newQueueRef(queue))
	if prev == nil {
		return
	}

	prev.replace()

	// Wait for a read pending on the previous queue to return
	prev.reading.Lock()
	defer prev.reading.Unlock()
}

// Queue returns the queue the worker reads from, or nil.
func (w *Worker) Queue() Queue {
	ref := w.queue.Load()
	if ref == nil {
		return nil
	}
	return ref.queue
}

// Loop states whether the run loop is active.
func (w *Worker) Loop() bool {
	return w.running.Load() && !w.stopRequested.Load()
}

// Stop asks the run loop to exit.
// A save in progress is completed before the loop observes the request.
func (w *Worker) Stop() {
	w.stopRequested.Store(true)
}

// Run opens the publisher session and runs the loop until [Worker.Stop]
// is called or the context is cancelled. The session is closed on return.
func (w *Worker) Run(ctx context.Context) (err error) {
	if w.stopRequested.Load() {
		return nil
	}

	session, err := w.dialer.Open(ctx, w.cfg.publisherConfig())
	if err != nil {
		return fmt.Errorf("writer: opening publisher session: %w", err)
	}

	w.running.Store(true)

	w.tel.LogInfo("running", "topic", w.cfg.Topic)

	defer func() {
		w.running.Store(false)

		if closeErr := session.Close(); closeErr != nil {
			w.tel.LogError("failed to close publisher session", closeErr)
			err = errors.Join(err, closeErr)
		}

		w.tel.LogInfo("stopped")
	}()

	pollInterval := w.cfg.pollInterval()

	for !w.stopRequested.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ref := w.queue.Load()
		if ref.queue == nil {
			idle(ctx, ref, pollInterval)
			continue
		}

		obj, err := w.read(ctx, ref, pollInterval)
		if err != nil {
			// A closed queue returns at once, wait for it to be replaced
			if errors.Is(err, connector.ErrClosed) {
				idle(ctx, ref, pollInterval)
			}
			continue
		}

		w.handle(ctx, session, obj)
	}

	return nil
}

// read dequeues one item, waiting at most timeout.
// The wait ends early when ctx is done or the queue is replaced.
func (w *Worker) read(ctx context.Context, ref *queueRef, timeout time.Duration) (DataObject, error) {
	ref.reading.Lock()
	defer ref.reading.Unlock()

	if w.queue.Load() != ref {
		return nil, context.Canceled
	}

	readCtx, cancel := context.WithTimeout(ref.replaced, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return ref.queue.ReadContext(readCtx)
}

// idle waits for d, returning early when ctx is done or the queue is replaced.
func idle(ctx context.Context, ref *queueRef, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-ref.replaced.Done():
	case <-timer.C:
	}
}

// handle processes a data object, recovering any panic so the loop survives.
func (w *Worker) handle(ctx context.Context, session pubsub.Session, obj DataObject) {
	defer func() {
		if rec := recover(); rec != nil {
			w.tel.LogError("panic while processing data object", fmt.Errorf("%v", rec))
			w.skippedObjects.Add(ctx, 1)
		}

		if releaser, ok := obj.(Releaser); ok {
			releaser.Release()
		}
	}()

	if err := w.process(ctx, session, obj); err != nil {
		w.tel.LogError("failed to process data object", err)
		w.skippedObjects.Add(ctx, 1)
		return
	}

	w.processedObjects.Add(ctx, 1)
}

func (w *Worker) process(ctx context.Context, session pubsub.Session, obj DataObject) error {
	ctx, span := w.tel.NewTrace(ctx, "write data object")
	defer span.End()

	info := obj.Info()
	timeName := w.naming.TimeField(info)

	productConfig, err := info.ProductConfig()
	if err != nil {
		return err
	}

	products, err := info.Products()
	if err != nil {
		return err
	}

	datasetIDs, err := info.DatasetIDs()
	if err != nil {
		return err
	}

	if len(products) != len(datasetIDs) {
		return fmt.Errorf("%w: %d products, %d dataset ids", ErrMisaligned, len(products), len(datasetIDs))
	}

	span.SetAttributes(attribute.StringSlice("products", products))

	for i, product := range products {
		filenames, err := w.naming.Filenames(info, productConfig, product)
		if err != nil {
			return fmt.Errorf("composing filenames of product %q: %w", product, err)
		}

		writers, err := w.naming.Writers(productConfig, product, info.AreaName())
		if err != nil {
			return fmt.Errorf("selecting writers of product %q: %w", product, err)
		}

		for j, filename := range filenames {
			// Files without a matching writer use the default one
			var writer WriterID
			if j < len(writers) {
				writer = writers[j]
			}

			if err := w.saveFile(ctx, session, obj, info[timeName], product, datasetIDs[i], filename, writer); err != nil {
				w.saveErrors.Add(ctx, 1)

				if w.cfg.SaveErrorPolicy == SaveErrorSkipFile {
					w.tel.LogError("failed to save file, skipping", err, "filename", filename)
					continue
				}

				span.SetStatus(codes.Error, err.Error())
				return fmt.Errorf("saving %s: %w", filename, err)
			}
		}
	}

	return nil
}

func (w *Worker) saveFile(ctx context.Context, session pubsub.Session, obj DataObject,
	nominalTime any, product string, id DatasetID, filename string, writer WriterID) error {

	ctx, span := w.tel.NewTrace(ctx, "save file")
	defer span.End()

	span.SetAttributes(
		attribute.String("filename", filename),
		attribute.String("product", product),
		attribute.String("writer", string(writer)),
	)

	w.tel.LogInfo("saving", "filename", filename, "writer", writer)

	start := time.Now()
	if err := obj.SaveDataset(ctx, id, filename, writer, w.saveOptions); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	w.saveDuration.Record(ctx, time.Since(start).Milliseconds())
	w.savedFiles.Add(ctx, 1)

	if w.cfg.Topic != "" {
		w.publish(ctx, session, obj, nominalTime, product, filename)
	}

	w.tel.LogInfo("saved", "filename", filename)

	return nil
}

// publish announces a saved file. Failures are logged and counted only.
func (w *Worker) publish(ctx context.Context, session pubsub.Session, obj DataObject, nominalTime any, product, filename string) {
	area, err := obj.Area(product)
	if err != nil {
		w.tel.LogError("failed to get product area", err, "product", product)
		w.publishErrors.Add(ctx, 1)
		return
	}

	event, err := newEvent(filename, product, nominalTime, area)
	if err != nil {
		w.tel.LogError("failed to build completion event", err, "filename", filename)
		w.publishErrors.Add(ctx, 1)
		return
	}

	msg, err := pubsub.NewMessage(w.cfg.Topic, pubsub.TypeFile, event)
	if err != nil {
		w.tel.LogError("failed to build message", err, "filename", filename)
		w.publishErrors.Add(ctx, 1)
		return
	}

	if err := session.Publish(ctx, msg); err != nil {
		w.tel.LogError("failed to publish completion event", err, "filename", filename)
		w.publishErrors.Add(ctx, 1)
		return
	}

	w.publishedEvents.Add(ctx, 1)
	w.tel.LogDebug("sent message", "message", msg.String())
}

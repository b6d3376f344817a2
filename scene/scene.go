// Package scene provides an in-memory [writer.DataObject]
// made of gridded datasets.
package scene

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/squadracorsepolito/satwriter/storage"
	"github.com/squadracorsepolito/satwriter/writer"
)

var (
	ErrUnknownDataset = errors.New("scene: unknown dataset")
	ErrUnknownProduct = errors.New("scene: unknown product")
	ErrReleased       = errors.New("scene: scene is released")
)

// Dataset is a row-major grid of samples.
type Dataset struct {
	Width  int
	Height int
	Data   []float32
}

// NewDataset returns a zeroed dataset of the given size.
func NewDataset(width, height int) *Dataset {
	return &Dataset{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}
}

func (ds *Dataset) validate() error {
	if ds.Width <= 0 || ds.Height <= 0 || len(ds.Data) != ds.Width*ds.Height {
		return fmt.Errorf("scene: dataset of %dx%d has %d samples", ds.Width, ds.Height, len(ds.Data))
	}
	return nil
}

func (ds *Dataset) bounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, sample := range ds.Data {
		v := float64(sample)
		if math.IsNaN(v) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

var (
	_ writer.DataObject = (*Scene)(nil)
	_ writer.Releaser   = (*Scene)(nil)
)

// Scene is a [writer.DataObject] holding its datasets in memory.
type Scene struct {
	store    storage.Store
	encoders *Registry

	mux      sync.RWMutex
	info     writer.Info
	areas    map[string]*writer.Area
	datasets map[writer.DatasetID]*Dataset
	released bool
}

// New returns an empty scene saving its datasets to store.
func New(info writer.Info, store storage.Store, encoders *Registry) *Scene {
	if info == nil {
		info = writer.Info{}
	}

	return &Scene{
		store:    store,
		encoders: encoders,

		info:     info,
		areas:    make(map[string]*writer.Area),
		datasets: make(map[writer.DatasetID]*Dataset),
	}
}

// AddProduct adds a product backed by the given dataset,
// keeping products and dataset ids aligned in the info.
func (s *Scene) AddProduct(product string, id writer.DatasetID, ds *Dataset, area *writer.Area) error {
	if err := ds.validate(); err != nil {
		return err
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if s.released {
		return ErrReleased
	}

	products, _ := s.info[writer.InfoKeyProducts].([]string)
	ids, _ := s.info[writer.InfoKeyDatasetIDs].([]writer.DatasetID)

	s.info[writer.InfoKeyProducts] = append(products, product)
	s.info[writer.InfoKeyDatasetIDs] = append(ids, id)

	s.areas[product] = area
	s.datasets[id] = ds

	return nil
}

func (s *Scene) Info() writer.Info {
	return s.info
}

func (s *Scene) Area(product string) (*writer.Area, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	area, ok := s.areas[product]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, product)
	}
	return area, nil
}

func fileFormat(filename string, opts *writer.SaveOptions) string {
	if opts.Format != "" {
		return opts.Format
	}
	return strings.TrimPrefix(filepath.Ext(filename), ".")
}

// SaveDataset encodes the dataset with the encoder selected by the writer id,
// or by the file format when the id is empty, and writes it to the store.
func (s *Scene) SaveDataset(ctx context.Context, id writer.DatasetID, filename string, writerID writer.WriterID, opts *writer.SaveOptions) error {
	s.mux.RLock()
	ds, ok := s.datasets[id]
	released := s.released
	s.mux.RUnlock()

	if released {
		return ErrReleased
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDataset, id)
	}

	enc, err := s.encoders.Lookup(writerID, fileFormat(filename, opts))
	if err != nil {
		return err
	}

	w, err := s.store.Create(ctx, filename)
	if err != nil {
		return err
	}

	if err := enc.Encode(w, ds, opts); err != nil {
		return errors.Join(err, storage.Abort(w))
	}

	return w.Close()
}

// Release drops the datasets.
func (s *Scene) Release() {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.released = true
	s.datasets = nil
}

// Package writer persists processed data objects to files and announces
// every written file with a completion event.
//
// A [Container] owns a single background [Worker] that drains the
// hand-off queue set with [Container.SetInputQueue].
package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/squadracorsepolito/satwriter/connector"
)

// Info keys read by the worker.
const (
	InfoKeyProductConfig = "product_config"
	InfoKeyProducts      = "products"
	InfoKeyDatasetIDs    = "dataset_ids"
	InfoKeyAreaName      = "areaname"
)

var (
	// ErrMissingInfo is returned when a required info key is absent or has the wrong type.
	ErrMissingInfo = errors.New("writer: missing info")
	// ErrMisaligned is returned when products and dataset ids differ in length.
	ErrMisaligned = errors.New("writer: products and dataset ids are misaligned")
)

// DatasetID identifies a dataset within a [DataObject].
type DatasetID string

// WriterID selects the backend used to persist a dataset.
// The empty WriterID lets the data object pick its default.
type WriterID string

// Info is the processing metadata of a [DataObject].
type Info map[string]any

// ProductConfig returns the opaque product configuration.
func (i Info) ProductConfig() (any, error) {
	cfg, ok := i[InfoKeyProductConfig]
	if !ok || cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingInfo, InfoKeyProductConfig)
	}
	return cfg, nil
}

// Products returns the ordered product identifiers.
func (i Info) Products() ([]string, error) {
	products, ok := i[InfoKeyProducts].([]string)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingInfo, InfoKeyProducts)
	}
	return products, nil
}

// DatasetIDs returns the dataset identifiers aligned with [Info.Products].
func (i Info) DatasetIDs() ([]DatasetID, error) {
	ids, ok := i[InfoKeyDatasetIDs].([]DatasetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingInfo, InfoKeyDatasetIDs)
	}
	return ids, nil
}

// AreaName returns the name of the area the data object covers.
func (i Info) AreaName() string {
	name, _ := i[InfoKeyAreaName].(string)
	return name
}

// Area is the geospatial descriptor of a product.
type Area struct {
	Name   string
	AreaID string
	ProjID string
	Proj4  string
	XSize  int
	YSize  int
}

// DataObject is the unit of work pushed into the hand-off queue.
type DataObject interface {
	// Info returns the processing metadata.
	Info() Info

	// Area returns the area of the given product.
	Area(product string) (*Area, error)

	// SaveDataset persists a dataset to filename.
	// It blocks until the file is completely written.
	SaveDataset(ctx context.Context, id DatasetID, filename string, writer WriterID, opts *SaveOptions) error
}

// Releaser is implemented by data objects holding resources
// that can be freed once all of their products are persisted.
type Releaser interface {
	Release()
}

// Queue is the hand-off queue between the producer and the worker.
type Queue = connector.Connector[DataObject]

// NewQueue returns a bounded [Queue] with the given capacity.
func NewQueue(size int) Queue {
	return connector.NewChannel[DataObject](size)
}

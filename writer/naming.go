package writer

// Naming resolves the names used while persisting a data object.
type Naming interface {
	// TimeField returns the info key holding the nominal time.
	TimeField(info Info) string

	// Filenames returns the ordered files a product is written to.
	Filenames(info Info, productConfig any, product string) ([]string, error)

	// Writers returns the writer of each file returned by Filenames.
	Writers(productConfig any, product, areaName string) ([]WriterID, error)
}

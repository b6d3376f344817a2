// Package storage contains the targets the output files are written to.
package storage

import (
	"context"
	"io"
)

// Store creates output files.
type Store interface {
	// Create opens name for writing, truncating it if it exists.
	// The file is complete once the returned writer is closed without error.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
}

// Aborter is implemented by the writers returned by [Store.Create]
// that can discard a file instead of committing it.
type Aborter interface {
	Abort() error
}

// Abort discards w if it supports it, otherwise it closes it.
func Abort(w io.WriteCloser) error {
	if aborter, ok := w.(Aborter); ok {
		return aborter.Abort()
	}
	return w.Close()
}

package formdata

import (
	"context"
	"io"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// INTERFACES

// Sink receives the content of one file part
type Sink interface {
	io.WriteCloser

	// Name returns the name of the stored artifact
	Name() string

	// Path returns the location of the stored artifact
	Path() string

	// Open the stored content for reading, after the sink is closed.
	// Caller must close the returned reader.
	Open(context.Context) (io.ReadCloser, error)

	// Remove the stored artifact
	Remove(context.Context) error
}

// SinkProvider creates a sink for each file part a decoder accepts
type SinkProvider interface {
	CreateSink(context.Context, schema.PartHeader) (Sink, error)
}

////////////////////////////////////////////////////////////////////////////////
// TYPES

// SinkProviderFunc adapts a function to a SinkProvider
type SinkProviderFunc func(context.Context, schema.PartHeader) (Sink, error)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (fn SinkProviderFunc) CreateSink(ctx context.Context, hdr schema.PartHeader) (Sink, error) {
	return fn(ctx, hdr)
}

package decoder

import (
	"fmt"
	"log/slog"

	// Packages
	formdata "github.com/mutablelogic/go-formdata"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	sink "github.com/mutablelogic/go-formdata/pkg/sink"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for decoder configuration.
type Opt func(*opts) error

type opts struct {
	maxBodySize   int64
	maxHeaderSize int
	maxFieldSize  int64
	chunkSize     int
	skipRejected  bool
	provider      formdata.SinkProvider
	logger        *slog.Logger
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithMaxBodySize sets the ceiling on the total number of bytes fed to the
// decoder. Zero or negative disables the ceiling.
func WithMaxBodySize(n int64) Opt {
	return func(o *opts) error {
		o.maxBodySize = n
		return nil
	}
}

// WithMaxHeaderSize sets the ceiling on the header block of each part
func WithMaxHeaderSize(n int) Opt {
	return func(o *opts) error {
		if n <= 0 {
			return fmt.Errorf("max header size must be positive")
		}
		o.maxHeaderSize = n
		return nil
	}
}

// WithMaxFieldSize sets the ceiling on a field value, for fields without
// their own ceiling in the schema
func WithMaxFieldSize(n int64) Opt {
	return func(o *opts) error {
		if n <= 0 {
			return fmt.Errorf("max field size must be positive")
		}
		o.maxFieldSize = n
		return nil
	}
}

// WithChunkSize sets the size of reads when decoding from a reader
func WithChunkSize(n int) Opt {
	return func(o *opts) error {
		if n <= 0 {
			return fmt.Errorf("chunk size must be positive")
		}
		o.chunkSize = n
		return nil
	}
}

// WithSkipRejected drops a part which violates its constraints and continues
// with the rest of the body, rather than failing the whole body
func WithSkipRejected(skip bool) Opt {
	return func(o *opts) error {
		o.skipRejected = skip
		return nil
	}
}

// WithSinkProvider sets where file content is written. The default writes
// to files in the OS temporary directory.
func WithSinkProvider(provider formdata.SinkProvider) Opt {
	return func(o *opts) error {
		if provider == nil {
			return fmt.Errorf("sink provider cannot be nil")
		}
		o.provider = provider
		return nil
	}
}

// WithLogger sets the logger for ignored parts, deprecated headers and
// cleanup failures
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	o := opts{
		maxBodySize:   schema.DefaultMaxBodySize,
		maxHeaderSize: schema.DefaultMaxHeaderSize,
		maxFieldSize:  schema.DefaultMaxFieldSize,
		chunkSize:     schema.DefaultChunkSize,
		logger:        slog.Default(),
	}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}

	// Default sink writes to the temporary directory
	if o.provider == nil {
		provider, err := sink.NewFileProvider("", sink.WithLogger(o.logger))
		if err != nil {
			return opts{}, err
		}
		o.provider = provider
	}

	// Return success
	return o, nil
}

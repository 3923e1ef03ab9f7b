package manager

import (
	"context"
	"fmt"
	"log/slog"

	// Packages
	formdata "github.com/mutablelogic/go-formdata"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	sink "github.com/mutablelogic/go-formdata/pkg/sink"
	metric "go.opentelemetry.io/otel/metric"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for manager configuration.
type Opt func(*opts) error

type opts struct {
	tracer       trace.Tracer
	meter        metric.Meter
	logger       *slog.Logger
	provider     formdata.SinkProvider
	schemas      map[string]*schema.Schema
	maxBodySize  int64
	chunkSize    int
	skipRejected bool
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithTracer sets the tracer used for tracing operations.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

// WithMeter sets the meter for the decode counters. The default is the
// global meter provider.
func WithMeter(meter metric.Meter) Opt {
	return func(o *opts) error {
		if meter == nil {
			return fmt.Errorf("meter cannot be nil")
		}
		o.meter = meter
		return nil
	}
}

// WithLogger sets the logger, which is also passed to decoders and the
// default sink. It should be applied before any sink option.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithSinkProvider sets where uploaded files are stored.
func WithSinkProvider(provider formdata.SinkProvider) Opt {
	return func(o *opts) error {
		if provider == nil {
			return fmt.Errorf("sink provider cannot be nil")
		} else if o.provider != nil {
			return fmt.Errorf("sink provider already set")
		}
		o.provider = provider
		return nil
	}
}

// WithFileSink stores uploaded files in a local directory. An empty
// directory is the OS temporary directory.
func WithFileSink(dir string, sinkOpts ...sink.Opt) Opt {
	return func(o *opts) error {
		provider, err := sink.NewFileProvider(dir, append([]sink.Opt{sink.WithLogger(o.logger)}, sinkOpts...)...)
		if err != nil {
			return err
		}
		return WithSinkProvider(provider)(o)
	}
}

// WithBlobSink stores uploaded files in a blob bucket (mem://, file://, s3://).
// The url should be in the format "scheme://bucket[/prefix]".
func WithBlobSink(ctx context.Context, url string, sinkOpts ...sink.Opt) Opt {
	return func(o *opts) error {
		provider, err := sink.NewBlobProvider(ctx, url, append([]sink.Opt{sink.WithLogger(o.logger)}, sinkOpts...)...)
		if err != nil {
			return err
		}
		return WithSinkProvider(provider)(o)
	}
}

// WithSchema registers a schema under a name. Returns an error if the
// schema is invalid or the name is already registered.
func WithSchema(name string, s *schema.Schema) Opt {
	return func(o *opts) error {
		if name == "" {
			return fmt.Errorf("schema name cannot be empty")
		} else if _, exists := o.schemas[name]; exists {
			return fmt.Errorf("schema with name %q already registered", name)
		}
		if s == nil {
			s = new(schema.Schema)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("schema %q: %w", name, err)
		}
		o.schemas[name] = s
		return nil
	}
}

// WithSchemas registers every schema in a configuration
func WithSchemas(cfg *schema.Config) Opt {
	return func(o *opts) error {
		if cfg == nil {
			return nil
		}
		for _, name := range cfg.Names() {
			if err := WithSchema(name, cfg.Schemas[name])(o); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithMaxBodySize sets the ceiling on the size of each body. Zero disables
// the ceiling.
func WithMaxBodySize(n int64) Opt {
	return func(o *opts) error {
		if n < 0 {
			return fmt.Errorf("max body size cannot be negative")
		}
		o.maxBodySize = n
		return nil
	}
}

// WithChunkSize sets the size of reads from each body
func WithChunkSize(n int) Opt {
	return func(o *opts) error {
		if n <= 0 {
			return fmt.Errorf("chunk size must be positive")
		}
		o.chunkSize = n
		return nil
	}
}

// WithSkipRejected drops parts which violate the schema rather than failing
// the body
func WithSkipRejected(skip bool) Opt {
	return func(o *opts) error {
		o.skipRejected = skip
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	o := opts{
		logger:      slog.Default(),
		schemas:     make(map[string]*schema.Schema),
		maxBodySize: schema.DefaultMaxBodySize,
		chunkSize:   schema.DefaultChunkSize,
	}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}

	// Files go to the temporary directory by default
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

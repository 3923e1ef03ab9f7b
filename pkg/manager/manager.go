package manager

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	decoder "github.com/mutablelogic/go-formdata/pkg/decoder"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	global "go.opentelemetry.io/otel"
	attribute "go.opentelemetry.io/otel/attribute"
	metric "go.opentelemetry.io/otel/metric"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Manager decodes bodies against named schemas, storing files through a
// single sink provider
type Manager struct {
	opts
	bytes    metric.Int64Counter
	parts    metric.Int64Counter
	failures metric.Int64Counter
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a new form manager.
func New(ctx context.Context, opts ...Opt) (*Manager, error) {
	self := new(Manager)

	// Apply options
	if opt, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		self.opts = opt
	}

	// Create the counters
	meter := self.meter
	if meter == nil {
		meter = global.Meter(schema.SchemaName)
	}
	if counter, err := meter.Int64Counter(schema.SchemaName+".bytes", metric.WithDescription("Body bytes decoded"), metric.WithUnit("By")); err != nil {
		return nil, errors.Join(err, self.Close())
	} else {
		self.bytes = counter
	}
	if counter, err := meter.Int64Counter(schema.SchemaName+".parts", metric.WithDescription("Parts accepted")); err != nil {
		return nil, errors.Join(err, self.Close())
	} else {
		self.parts = counter
	}
	if counter, err := meter.Int64Counter(schema.SchemaName+".failures", metric.WithDescription("Bodies which failed to decode")); err != nil {
		return nil, errors.Join(err, self.Close())
	} else {
		self.failures = counter
	}

	// Return success
	return self, nil
}

// Close the sink provider, if it holds resources
func (manager *Manager) Close() error {
	if closer, ok := manager.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Schemas returns the registered schema names in sorted order
func (manager *Manager) Schemas() []string {
	result := make([]string, 0, len(manager.schemas))
	for name := range manager.schemas {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Schema returns a registered schema, or a not found error
func (manager *Manager) Schema(name string) (*schema.Schema, error) {
	if s, exists := manager.schemas[name]; exists {
		return s, nil
	}
	return nil, httpresponse.ErrNotFound.Withf("no schema found for name %q", name)
}

// Decode reads a multipart/form-data body with the given Content-Type
// header and returns its accepted parts. On failure any files already stored
// for the body are removed.
func (manager *Manager) Decode(ctx context.Context, name, contentType string, body io.Reader) (*schema.Form, error) {
	// Find the schema
	s, err := manager.Schema(name)
	if err != nil {
		return nil, err
	}

	// OTEL span
	var result error
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("Decode"))
	defer func() { endFunc(result) }()

	// Create a decoder for the body
	boundary, err := decoder.Boundary(contentType)
	if err != nil {
		result = err
		return nil, err
	}
	dec, err := decoder.New(boundary, s,
		decoder.WithSinkProvider(manager.provider),
		decoder.WithLogger(manager.logger),
		decoder.WithMaxBodySize(manager.maxBodySize),
		decoder.WithChunkSize(manager.chunkSize),
		decoder.WithSkipRejected(manager.skipRejected),
	)
	if err != nil {
		result = err
		return nil, err
	}

	// Collect the parts
	form := schema.NewForm(s)
	for part, err := range dec.Parts(child, body) {
		if err != nil {
			result = err
			break
		}
		form.Add(part)
	}

	// Record the outcome
	attrs := metric.WithAttributes(attribute.String("schema", name))
	manager.bytes.Add(child, dec.Received(), attrs)
	if result != nil {
		manager.failures.Add(child, 1, metric.WithAttributes(
			attribute.String("schema", name),
			attribute.Int("code", statusCode(result)),
		))
		if err := form.RemoveAll(context.WithoutCancel(child)); err != nil {
			manager.logger.WarnContext(child, "failed to remove stored files", "schema", name, "error", err)
		}
		return nil, result
	}
	manager.parts.Add(child, int64(form.Len()), attrs)

	// Return success
	return form, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func spanManagerName(op string) string {
	return schema.SchemaName + ".manager." + op
}

// statusCode returns the response status of an error
func statusCode(err error) int {
	var code httpresponse.Err
	if errors.As(err, &code) {
		return int(code)
	}
	return http.StatusInternalServerError
}

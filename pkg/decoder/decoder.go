package decoder

import (
	"context"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Decoder is a push decoder for one multipart/form-data body. Chunks of the
// body are fed in order, and each chunk may split any token of the body.
// A decoder must not be shared between bodies or goroutines.
type Decoder struct {
	opts
	boundary string
	schema   *schema.Schema
	state    state
	received int64
	err      error // sticky once set
	trackers map[string]*schema.Tracker

	// Matchers
	seek     *matcher // --boundary
	prefix   *matcher // content-disposition: form-data;
	label    *matcher // name="
	filename *matcher // filename="
	delim    *matcher // CRLF--boundary

	// Working data of the current state
	part       *part
	headerSize int
	token      []byte
	line       []byte
	pendingCR  bool
	virtual    int  // leading bytes of a partial delimiter match which are not content
	end        byte // first byte after a delimiter

	// Parts finalized during the current feed
	out []*schema.Part
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	headerPrefix  = "Content-Disposition: form-data;"
	nameLabel     = `name="`
	filenameLabel = `filename="`
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns a decoder for a body delimited by boundary, which excludes the
// leading dashes. Parts with names absent from the schema are scanned and
// discarded. A nil schema discards every part.
func New(boundary string, s *schema.Schema, opts ...Opt) (*Decoder, error) {
	self := new(Decoder)

	// Check the boundary
	if boundary == "" {
		return nil, schema.ErrBadRequest.With("boundary cannot be empty")
	}

	// Apply the options
	if opt, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		self.opts = opt
	}

	// Set up the matchers
	self.boundary = boundary
	self.schema = s
	self.trackers = make(map[string]*schema.Tracker)
	self.seek = newMatcher("--"+boundary, false)
	self.prefix = newMatcher(headerPrefix, true)
	self.label = newMatcher(nameLabel, false)
	self.filename = newMatcher(filenameLabel, false)
	self.delim = newMatcher("\r\n--"+boundary, false)
	self.enter(stateSeeking)

	// Return success
	return self, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Feed scans the next chunk of the body and returns the parts which were
// completed within it. Once an error is returned, every later call returns
// the same error and any partially written content has been removed.
func (d *Decoder) Feed(ctx context.Context, chunk []byte) ([]*schema.Part, error) {
	if d.err != nil {
		return nil, d.err
	}

	// Enforce the byte budget before any byte of the chunk is inspected
	d.received += int64(len(chunk))
	if d.maxBodySize > 0 && d.received > d.maxBodySize {
		return nil, d.fail(ctx, schema.ErrPayloadTooLarge.Withf("body exceeds %d bytes", d.maxBodySize))
	}

	// Scan the chunk
	for len(chunk) > 0 {
		n, err := d.scan(ctx, chunk)
		if err != nil {
			return nil, d.fail(ctx, err)
		}
		chunk = chunk[n:]
	}

	// Return the completed parts
	out := d.out
	d.out = nil
	return out, nil
}

// Close marks the end of the body. It returns an error if the closing
// delimiter was not seen, and removes any partially written content.
func (d *Decoder) Close(ctx context.Context) error {
	switch {
	case d.err != nil:
		return d.err
	case d.state == stateDone:
		return nil
	case d.state == stateSeeking:
		return d.fail(ctx, schema.ErrBadRequest.With("boundary not found"))
	default:
		return d.fail(ctx, schema.ErrBadRequest.Withf("unexpected end of body in state %v", d.state))
	}
}

// Done returns true when the closing delimiter has been seen
func (d *Decoder) Done() bool {
	return d.err == nil && d.state == stateDone
}

// Err returns the error which stopped the decoder, or nil
func (d *Decoder) Err() error {
	return d.err
}

// Received returns the number of bytes fed so far
func (d *Decoder) Received() int64 {
	return d.received
}

// Tracker returns what has been accepted under a name
func (d *Decoder) Tracker(name string) (schema.Tracker, bool) {
	if t, exists := d.trackers[name]; exists {
		return *t, true
	}
	return schema.Tracker{}, false
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// scan consumes bytes from the start of data and returns how many were
// consumed, which is at least one
func (d *Decoder) scan(ctx context.Context, data []byte) (int, error) {
	switch d.state {
	case stateSeeking:
		return d.scanPreamble(data), nil
	case stateContent:
		return d.scanContent(ctx, data)
	case stateDone:
		// Epilogue is ignored
		return len(data), nil
	default:
		return d.scanHeader(ctx, data)
	}
}

// scanPreamble discards bytes up to and including the first boundary
func (d *Decoder) scanPreamble(data []byte) int {
	for i, b := range data {
		if d.seek.step(b) == len(d.seek.needle) {
			d.enter(stateHeaderPrefix)
			return i + 1
		}
	}
	return len(data)
}

// done is called when the closing delimiter is seen
func (d *Decoder) done() error {
	if d.schema != nil {
		for name, c := range d.schema.Files {
			if c.Min == 0 {
				continue
			}
			var count uint
			if t, exists := d.trackers[name]; exists {
				count = t.Count
			}
			if count < c.Min {
				return schema.ErrBadRequest.Withf("%q: expected at least %d file(s), got %d", name, c.Min, count)
			}
		}
	}
	d.enter(stateDone)
	return nil
}

// fail stops the decoder, removing partially written content and any parts
// completed during the current feed, which the caller will not receive
func (d *Decoder) fail(ctx context.Context, err error) error {
	if d.err != nil {
		return d.err
	}
	d.err = err

	// Remove the current part
	d.cleanup(ctx, d.part)
	d.part = nil

	// Remove parts which will not be returned
	for _, p := range d.out {
		if err := p.Remove(context.WithoutCancel(ctx)); err != nil {
			d.logger.WarnContext(ctx, "failed to remove part", "name", p.Name, "path", p.Path, "error", err)
		}
	}
	d.out = nil

	// Return the error
	return err
}

// cleanup closes and removes the content of a part. Failures are logged.
func (d *Decoder) cleanup(ctx context.Context, p *part) {
	if p == nil || p.sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := p.sink.Close(); err != nil {
		d.logger.WarnContext(ctx, "failed to close sink", "name", p.name, "path", p.sink.Path(), "error", err)
	}
	if err := p.sink.Remove(ctx); err != nil {
		d.logger.WarnContext(ctx, "failed to remove sink", "name", p.name, "path", p.sink.Path(), "error", err)
	}
	p.sink, p.w = nil, nil
}

package decoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// scanContent passes content to the current part until the delimiter is
// found. Bytes which may be the start of the delimiter are withheld until
// the match fails, and are then released from the needle itself.
func (d *Decoder) scanContent(ctx context.Context, data []byte) (int, error) {
	m := d.delim
	first := m.needle[0]
	for i := 0; i < len(data); {
		// Pass through content which cannot start the delimiter
		if m.n == 0 {
			j := bytes.IndexByte(data[i:], first)
			if j < 0 {
				return len(data), d.write(ctx, data[i:])
			} else if err := d.write(ctx, data[i:i+j]); err != nil {
				return i + j, err
			}
			i += j
		}

		// Advance the partial match by one byte
		b := data[i]
		i++
		prev := m.n
		next := m.step(b)
		if next == len(m.needle) {
			return i, d.finish(ctx)
		}

		// Release the bytes which can no longer be part of the delimiter
		if released := prev + 1 - next; released > 0 {
			if err := d.release(ctx, m.needle[:prev], b, released); err != nil {
				return i, err
			}
		}
	}
	return len(data), nil
}

// release writes the first n bytes of the sequence withheld followed by b,
// skipping leading bytes which were never content
func (d *Decoder) release(ctx context.Context, withheld []byte, b byte, n int) error {
	skip := min(d.virtual, n)
	d.virtual -= skip
	if n <= len(withheld) {
		return d.write(ctx, withheld[skip:n])
	}
	if skip < len(withheld) {
		if err := d.write(ctx, withheld[skip:]); err != nil {
			return err
		}
	}
	if skip <= len(withheld) {
		return d.write(ctx, []byte{b})
	}
	return nil
}

// write applies the content policy of the current part to a range of content
func (d *Decoder) write(ctx context.Context, data []byte) error {
	p := d.part
	if len(data) == 0 || !p.accepted || p.err != nil {
		return nil
	}

	switch p.kind {
	case schema.Field:
		limit := p.field.MaxSize
		if limit <= 0 {
			limit = d.maxFieldSize
		}
		if limit > 0 && int64(p.value.Len()+len(data)) > limit {
			return d.reject(ctx, schema.ErrPayloadTooLarge.Withf("%q: field exceeds %d bytes", p.name, limit))
		}
		p.value.Write(data)
		p.size = int64(p.value.Len())
	case schema.File:
		if p.file.MaxFileSize > 0 && p.size+int64(len(data)) > p.file.MaxFileSize {
			if err := d.reject(ctx, schema.ErrPayloadTooLarge.Withf("%q: file exceeds %d bytes", p.name, p.file.MaxFileSize)); err != nil {
				return err
			}
			d.cleanup(ctx, p)
			return nil
		}

		// Obtain a sink on the first byte
		if p.sink == nil {
			sink, err := d.provider.CreateSink(ctx, p.header())
			if err != nil {
				return err
			}
			p.sink = sink
			p.w = bufio.NewWriterSize(sink, sinkBufferSize)
		}
		if _, err := p.w.Write(data); err != nil {
			return schema.ErrInternalError.Withf("%q: %v", p.name, err)
		}
		p.size += int64(len(data))
	}
	return nil
}

// finish is called when the delimiter after a part is found. An accepted
// part is returned from the current feed, and a skipped part is removed.
func (d *Decoder) finish(ctx context.Context) error {
	p := d.part

	// Commit the content
	if p.sink != nil {
		var result error
		if p.w != nil {
			result = errors.Join(result, p.w.Flush())
		}
		if err := errors.Join(result, p.sink.Close()); err != nil {
			return schema.ErrInternalError.Withf("%q: %v", p.name, err)
		}
	}

	switch {
	case p.err != nil:
		d.cleanup(ctx, p)
	case p.accepted:
		t, exists := d.trackers[p.name]
		if !exists {
			t = &schema.Tracker{Kind: p.kind}
			d.trackers[p.name] = t
		}
		record := p.record()
		t.Count++
		t.Size += record.Size
		d.out = append(d.out, record)
	}

	d.enter(stateEndOfPart)
	return nil
}

package decoder

import (
	"context"
	"errors"
	"io"
	"iter"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Parts returns the sequence of accepted parts read from r. The sequence
// ends after the closing delimiter, or with a single error. Stopping the
// iteration early closes the decoder, which removes any partial content and
// the content of parts which were not yielded.
func (d *Decoder) Parts(ctx context.Context, r io.Reader) iter.Seq2[*schema.Part, error] {
	return func(yield func(*schema.Part, error) bool) {
		buf := make([]byte, d.chunkSize)
		for {
			// Check for cancellation
			if err := ctx.Err(); err != nil {
				yield(nil, d.fail(ctx, err))
				return
			}

			// Read and feed the next chunk
			n, err := r.Read(buf)
			if n > 0 {
				parts, err := d.Feed(ctx, buf[:n])
				if err != nil {
					yield(nil, err)
					return
				}
				for i, part := range parts {
					if !yield(part, nil) {
						d.abandon(ctx, parts[i+1:])
						return
					}
				}
			}

			// Handle end of input and read errors
			if errors.Is(err, io.EOF) {
				if err := d.Close(ctx); err != nil {
					yield(nil, err)
				}
				return
			} else if err != nil {
				yield(nil, d.fail(ctx, schema.ErrBadRequest.Withf("read body: %v", err)))
				return
			}
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// abandon stops the decoder when the caller stops iterating, and removes
// parts the caller did not receive
func (d *Decoder) abandon(ctx context.Context, parts []*schema.Part) {
	for _, p := range parts {
		if err := p.Remove(context.WithoutCancel(ctx)); err != nil {
			d.logger.WarnContext(ctx, "failed to remove part", "name", p.Name, "path", p.Path, "error", err)
		}
	}
	if !d.Done() {
		if err := d.Close(ctx); err != nil {
			d.logger.DebugContext(ctx, "decoder closed before end of body", "error", err)
		}
	}
}

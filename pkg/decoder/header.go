package decoder

import (
	"bytes"
	"context"
	"mime"
	"strings"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// scanHeader consumes bytes one at a time until the state leaves the header
// block of a part, or the data is exhausted
func (d *Decoder) scanHeader(ctx context.Context, data []byte) (int, error) {
	for i, b := range data {
		if d.state.header() {
			if d.headerSize++; d.headerSize > d.maxHeaderSize {
				return i + 1, schema.ErrBadRequest.Withf("part header exceeds %d bytes", d.maxHeaderSize)
			}
		}
		if err := d.headerByte(ctx, b); err != nil {
			return i + 1, err
		}
		if d.state == stateContent || d.state == stateDone {
			return i + 1, nil
		}
	}
	return len(data), nil
}

func (d *Decoder) headerByte(ctx context.Context, b byte) error {
	switch d.state {
	case stateHeaderPrefix:
		if d.prefix.n == 0 && (b == '\r' || b == '\n') {
			return nil
		} else if !d.prefix.advance(b) {
			return schema.ErrBadRequest.With("expected Content-Disposition: form-data")
		} else if d.prefix.matched() {
			d.enter(stateNameLabel)
		}
	case stateNameLabel:
		if d.label.n == 0 && b == ' ' {
			return nil
		} else if !d.label.advance(b) {
			return schema.ErrBadRequest.With("expected name attribute in Content-Disposition")
		} else if d.label.matched() {
			d.enter(stateName)
		}
	case stateName:
		switch b {
		case '"':
			d.part.name = string(d.token)
			d.enter(stateFilenameOrHeaderEnd)
		case '\r', '\n':
			return schema.ErrBadRequest.With("line break in part name")
		default:
			d.token = append(d.token, b)
		}
	case stateFilenameOrHeaderEnd:
		switch {
		case d.pendingCR && b == '\n':
			d.enter(stateHeaderLines)
		case d.pendingCR || b == '\n':
			return schema.ErrBadRequest.With("malformed Content-Disposition line ending")
		case b == '\r':
			d.pendingCR = true
		case d.filename.step(b) == len(d.filename.needle):
			d.enter(stateFilename)
		}
	case stateFilename:
		switch b {
		case '"':
			d.part.filename = string(d.token)
			d.part.hasFilename = true
			d.enter(stateFilenameOrHeaderEnd)
		case '\r', '\n':
			return schema.ErrBadRequest.With("line break in filename")
		default:
			d.token = append(d.token, b)
		}
	case stateHeaderLines:
		if d.pendingCR {
			d.pendingCR = false
			if b == '\n' {
				if len(d.line) == 0 {
					return d.begin(ctx)
				}
				d.headerLine(ctx, d.line)
				d.line = d.line[:0]
				return nil
			}
			d.line = append(d.line, '\r')
		}
		if b == '\r' {
			d.pendingCR = true
		} else {
			d.line = append(d.line, b)
		}
	case stateEndOfPart:
		switch {
		case d.end == 0 && (b == '\r' || b == '-'):
			d.end = b
		case d.end == '\r' && b == '\n':
			d.enter(stateHeaderPrefix)
		case d.end == '-' && b == '-':
			return d.done()
		default:
			return schema.ErrBadRequest.With("malformed delimiter")
		}
	}
	return nil
}

// headerLine interprets a header line other than Content-Disposition
func (d *Decoder) headerLine(ctx context.Context, line []byte) {
	key, value, ok := bytes.Cut(line, []byte(":"))
	if !ok {
		return
	}
	switch strings.ToLower(string(bytes.TrimSpace(key))) {
	case "content-type":
		value := strings.TrimSpace(string(value))
		if mediatype, params, err := mime.ParseMediaType(value); err == nil {
			d.part.contentType = mediatype
			d.part.charset = params["charset"]
		} else {
			mediatype, _, _ := strings.Cut(value, ";")
			d.part.contentType = strings.ToLower(strings.TrimSpace(mediatype))
		}
		d.part.hasType = true
	case "content-transfer-encoding":
		d.logger.WarnContext(ctx, "ignoring deprecated Content-Transfer-Encoding", "name", d.part.name, "encoding", strings.TrimSpace(string(value)))
	}
}

// begin is called at the end of the header block. It classifies the part,
// looks up its constraint and checks the constraints known before content.
func (d *Decoder) begin(ctx context.Context) error {
	p := d.part
	p.classify()

	switch p.kind {
	case schema.Field:
		p.field, p.accepted = d.schema.Field(p.name)
	case schema.File:
		p.file, p.accepted = d.schema.File(p.name)
	}

	if !p.accepted {
		d.logger.DebugContext(ctx, "ignoring part", "name", p.name, "type", p.kind)
	} else if p.kind == schema.File {
		if err := d.check(p); err != nil {
			if err := d.reject(ctx, err); err != nil {
				return err
			}
		}
	}

	d.enter(stateContent)
	return nil
}

// check returns an error if a file part violates the mime type or
// multiplicity of its constraint
func (d *Decoder) check(p *part) error {
	if !p.file.Allows(p.contentType) {
		return schema.ErrUnsupportedMediaType.Withf("%q: content type %q is not allowed", p.name, p.contentType)
	}
	if t, exists := d.trackers[p.name]; exists {
		if !p.file.Multiple {
			return schema.ErrBadRequest.Withf("%q: duplicate non-multiple field", p.name)
		} else if p.file.Max > 0 && t.Count >= p.file.Max {
			return schema.ErrBadRequest.Withf("%q: exceeds max count of %d", p.name, p.file.Max)
		}
	}
	return nil
}

// reject returns err when rejected parts fail the body. Otherwise it marks
// the current part as skipped and returns nil.
func (d *Decoder) reject(ctx context.Context, err error) error {
	if !d.skipRejected {
		return err
	}
	d.part.err = err
	d.logger.WarnContext(ctx, "skipping rejected part", "name", d.part.name, "error", err)
	return nil
}

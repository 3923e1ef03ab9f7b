package decoder

import (
	"bufio"
	"bytes"
	"strings"

	// Packages
	formdata "github.com/mutablelogic/go-formdata"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// part is the part currently being scanned
type part struct {
	name        string
	filename    string
	hasFilename bool
	contentType string
	hasType     bool
	charset     string
	kind        schema.PartKind

	// Set when the content starts
	accepted bool
	field    schema.FieldConstraint
	file     schema.FileConstraint

	// Content
	size  int64
	value bytes.Buffer
	sink  formdata.Sink
	w     *bufio.Writer
	err   error // set when the part is rejected and skipped
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	defaultPartType = "text/plain"
	sinkBufferSize  = 32 << 10
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newPart() *part {
	return &part{contentType: defaultPartType}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// classify sets the kind of part once all headers are known. A filename
// always makes a file, otherwise text content is a field.
func (p *part) classify() {
	switch {
	case p.hasFilename:
		p.kind = schema.File
		if !p.hasType {
			p.contentType = schema.DefaultContentType
		}
	case strings.HasPrefix(p.contentType, "text/"):
		p.kind = schema.Field
	default:
		p.kind = schema.File
	}
}

func (p *part) header() schema.PartHeader {
	return schema.PartHeader{
		Name:        p.name,
		Filename:    p.filename,
		ContentType: p.contentType,
	}
}

// record returns the accepted part. Ownership of the sink passes to the record.
func (p *part) record() *schema.Part {
	result := &schema.Part{
		Type:        p.kind,
		Name:        p.name,
		ContentType: p.contentType,
		Charset:     p.charset,
	}
	switch p.kind {
	case schema.Field:
		result.Value = strings.TrimSpace(p.value.String())
		result.Size = int64(len(result.Value))
	case schema.File:
		result.OriginalFilename = p.filename
		result.Size = p.size
		if p.sink != nil {
			result.Filename = p.sink.Name()
			result.Path = p.sink.Path()
			result.Attach(p.sink)
			p.sink, p.w = nil, nil
		}
	}
	return result
}

package schema

import (
	"context"
	"io"
	"strings"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// PartKind distinguishes text fields from file uploads
type PartKind string

// PartHeader is the metadata of a part known when its content starts
type PartHeader struct {
	Name        string `json:"name"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Storage is where the content of a file part was written
type Storage interface {
	// Open the stored content for reading. Caller must close the reader.
	Open(context.Context) (io.ReadCloser, error)

	// Remove the stored content
	Remove(context.Context) error
}

// Part is a fully received and accepted part of a multipart body
type Part struct {
	Type             PartKind `json:"type"`
	Name             string   `json:"name"`
	Filename         string   `json:"filename,omitempty"`          // name of the stored artifact
	OriginalFilename string   `json:"original_filename,omitempty"` // name supplied by the client
	ContentType      string   `json:"content_type,omitempty"`
	Charset          string   `json:"charset,omitempty"`
	Path             string   `json:"path,omitempty"` // location of the stored artifact
	Size             int64    `json:"size"`
	Value            string   `json:"value,omitempty"`

	storage Storage
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	Field PartKind = "field"
	File  PartKind = "file"
)

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (p Part) String() string {
	return types.Stringify(p)
}

func (h PartHeader) String() string {
	return types.Stringify(h)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Attach sets the storage which holds the content of a file part
func (p *Part) Attach(storage Storage) {
	p.storage = storage
}

// Stored returns true if the part content is held in storage
func (p *Part) Stored() bool {
	return p.storage != nil
}

// Open returns a reader for the part content. Fields read back their value,
// and a file which received no content reads back empty.
func (p *Part) Open(ctx context.Context) (io.ReadCloser, error) {
	switch {
	case p.Type == Field:
		return io.NopCloser(strings.NewReader(p.Value)), nil
	case p.storage == nil:
		return io.NopCloser(strings.NewReader("")), nil
	default:
		return p.storage.Open(ctx)
	}
}

// Remove deletes the stored content of a file part, if any
func (p *Part) Remove(ctx context.Context) error {
	if p.storage == nil {
		return nil
	}
	if err := p.storage.Remove(ctx); err != nil {
		return err
	}
	p.storage = nil
	return nil
}

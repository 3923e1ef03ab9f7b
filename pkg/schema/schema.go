package schema

import (
	"net/http"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

const (
	SchemaName = "formdata"

	// DefaultMaxBodySize is the default ceiling on the number of bytes a
	// decoder accepts for a single body (10 MiB)
	DefaultMaxBodySize = 10 << 20

	// DefaultMaxHeaderSize is the default ceiling on the size of a single
	// header line and the header block of a part
	DefaultMaxHeaderSize = 8 << 10

	// DefaultMaxFieldSize is the default ceiling on a buffered field value
	DefaultMaxFieldSize = 1 << 20

	// DefaultChunkSize is the size of reads when a decoder is fed from a reader
	DefaultChunkSize = 32 << 10

	// DefaultContentType is assigned to file parts without a Content-Type header
	DefaultContentType = "application/octet-stream"

	// Metadata keys stored alongside file content
	MetaName     = "name"
	MetaFilename = "filename"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Errors returned when decoding a body, by response status
const (
	ErrBadRequest           = httpresponse.ErrBadRequest
	ErrNotFound             = httpresponse.ErrNotFound
	ErrForbidden            = httpresponse.ErrForbidden
	ErrInternalError        = httpresponse.ErrInternalError
	ErrPayloadTooLarge      = httpresponse.Err(http.StatusRequestEntityTooLarge)
	ErrUnsupportedMediaType = httpresponse.Err(http.StatusUnsupportedMediaType)
)

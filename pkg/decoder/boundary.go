package decoder

import (
	"mime"
	"regexp"
	"strings"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	ContentTypeFormData = "multipart/form-data"
)

var (
	reBoundary = regexp.MustCompile(`(?i)^multipart/form-data;\s?boundary=(.*)$`)
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Boundary returns the boundary token from a Content-Type header value
func Boundary(contentType string) (string, error) {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return "", schema.ErrBadRequest.With("missing Content-Type header")
	}

	// Parse as a media type, then fall back to matching the parameter when
	// the parameters are malformed
	var boundary string
	if mediatype, params, err := mime.ParseMediaType(contentType); err == nil {
		if mediatype != ContentTypeFormData {
			return "", schema.ErrBadRequest.Withf("expected %s, got %q", ContentTypeFormData, mediatype)
		}
		boundary = params["boundary"]
	} else if match := reBoundary.FindStringSubmatch(contentType); match != nil {
		boundary = strings.Trim(strings.TrimSpace(match[1]), `"`)
	} else {
		return "", schema.ErrBadRequest.Withf("invalid Content-Type %q", contentType)
	}

	// Return the boundary
	if boundary == "" {
		return "", schema.ErrBadRequest.With("missing boundary in Content-Type header")
	}
	return boundary, nil
}

package sink

import (
	"errors"
	"syscall"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	gcerrors "gocloud.dev/gcerrors"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// blobErr wraps a go-cloud blob error with the appropriate httpresponse error
func blobErr(err error, path string) error {
	if err == nil {
		return nil
	}
	// Check for OS-level errors before go-cloud classification, since the
	// gcerrors default path wraps with %v and breaks the chain.
	if errors.Is(err, syscall.EISDIR) || errors.Is(err, syscall.EEXIST) {
		return schema.ErrBadRequest.Withf("cannot overwrite directory with file: %q", path)
	}
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return schema.ErrNotFound.Withf("object %q not found", path)
	case gcerrors.PermissionDenied:
		return schema.ErrForbidden.Withf("permission denied for %q", path)
	case gcerrors.InvalidArgument:
		return schema.ErrBadRequest.Withf("invalid argument for %q: %v", path, err)
	case gcerrors.Canceled:
		return schema.ErrBadRequest.Withf("upload of %q cancelled", path)
	default:
		return schema.ErrInternalError.Withf("blob operation failed: %v", err)
	}
}

func isNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

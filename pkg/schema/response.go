package schema

import (
	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// SchemaListResponse is the set of schemas a server accepts bodies for
type SchemaListResponse struct {
	Body map[string]*Schema `json:"body"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r SchemaListResponse) String() string {
	return types.Stringify(r)
}

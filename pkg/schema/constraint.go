package schema

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Schema is the set of accepted part names. Parts with names absent from
// both maps are scanned and discarded.
type Schema struct {
	Fields map[string]FieldConstraint `json:"fields,omitempty" yaml:"fields"`
	Files  map[string]FileConstraint  `json:"files,omitempty" yaml:"files"`
}

// FieldConstraint applies to a text field. A zero MaxSize means the
// decoder default applies.
type FieldConstraint struct {
	MaxSize int64 `json:"max_size,omitempty" yaml:"max_size"`
}

// FileConstraint applies to a file upload. Zero values mean no constraint.
type FileConstraint struct {
	Multiple         bool     `json:"multiple,omitempty" yaml:"multiple"`
	MaxFileSize      int64    `json:"max_file_size,omitempty" yaml:"max_file_size"`
	AllowedMimeTypes []string `json:"allowed_mime_types,omitempty" yaml:"allowed_mime_types"`
	Min              uint     `json:"min,omitempty" yaml:"min"`
	Max              uint     `json:"max,omitempty" yaml:"max"`
}

// Tracker records what a decoder accepted under one name
type Tracker struct {
	Kind  PartKind `json:"kind"`
	Count uint     `json:"count"`
	Size  int64    `json:"size"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (s Schema) String() string {
	return types.Stringify(s)
}

func (c FileConstraint) String() string {
	return types.Stringify(c)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Field returns the constraint for a field name, and whether it is accepted
func (s *Schema) Field(name string) (FieldConstraint, bool) {
	if s == nil || s.Fields == nil {
		return FieldConstraint{}, false
	}
	c, exists := s.Fields[name]
	return c, exists
}

// File returns the constraint for a file name, and whether it is accepted
func (s *Schema) File(name string) (FileConstraint, bool) {
	if s == nil || s.Files == nil {
		return FileConstraint{}, false
	}
	c, exists := s.Files[name]
	return c, exists
}

// Validate returns an error if the schema is inconsistent
func (s *Schema) Validate() error {
	var result error
	if s == nil {
		return nil
	}
	for name, c := range s.Fields {
		if name == "" {
			result = errors.Join(result, fmt.Errorf("field name cannot be empty"))
		}
		if _, exists := s.Files[name]; exists {
			result = errors.Join(result, fmt.Errorf("%q is declared as both a field and a file", name))
		}
		if c.MaxSize < 0 {
			result = errors.Join(result, fmt.Errorf("field %q: max_size cannot be negative", name))
		}
	}
	for name, c := range s.Files {
		if name == "" {
			result = errors.Join(result, fmt.Errorf("file name cannot be empty"))
		}
		if c.MaxFileSize < 0 {
			result = errors.Join(result, fmt.Errorf("file %q: max_file_size cannot be negative", name))
		}
		if c.Max > 0 && c.Min > c.Max {
			result = errors.Join(result, fmt.Errorf("file %q: min %d exceeds max %d", name, c.Min, c.Max))
		}
		if !c.Multiple && c.Min > 1 {
			result = errors.Join(result, fmt.Errorf("file %q: min %d requires multiple", name, c.Min))
		}
		for _, t := range c.AllowedMimeTypes {
			if _, _, err := mime.ParseMediaType(t); err != nil {
				result = errors.Join(result, fmt.Errorf("file %q: invalid mime type %q", name, t))
			}
		}
	}
	return result
}

// Allows returns true if a media type is in the allow-list, or the list is
// empty. Entries of the form "image/*" match any subtype.
func (c FileConstraint) Allows(mediatype string) bool {
	if len(c.AllowedMimeTypes) == 0 {
		return true
	}
	mediatype = strings.ToLower(mediatype)
	for _, allowed := range c.AllowedMimeTypes {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == mediatype || allowed == "*/*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok && strings.HasPrefix(mediatype, prefix+"/") {
			return true
		}
	}
	return false
}

package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	// Packages
	errgroup "golang.org/x/sync/errgroup"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Form aggregates the parts of a body by name. Repeated fields collapse into
// arrays in arrival order, and files declared as multiple are always arrays.
type Form struct {
	schema *Schema
	names  []string
	parts  map[string][]*Part
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Number of concurrent removals when a form is rolled back
const parallelRemoves = 8

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewForm returns an empty form which aggregates parts according to a schema
func NewForm(schema *Schema) *Form {
	return &Form{
		schema: schema,
		parts:  make(map[string][]*Part),
	}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Add a part to the form
func (f *Form) Add(part *Part) {
	if part == nil {
		return
	}
	if _, exists := f.parts[part.Name]; !exists {
		f.names = append(f.names, part.Name)
	}
	f.parts[part.Name] = append(f.parts[part.Name], part)
}

// Names returns the part names in order of first arrival
func (f *Form) Names() []string {
	return f.names
}

// Len returns the total number of parts
func (f *Form) Len() int {
	var n int
	for _, parts := range f.parts {
		n += len(parts)
	}
	return n
}

// Value returns the first value of a field, or empty string
func (f *Form) Value(name string) string {
	for _, part := range f.parts[name] {
		if part.Type == Field {
			return part.Value
		}
	}
	return ""
}

// Values returns all values of a field in arrival order
func (f *Form) Values(name string) []string {
	var result []string
	for _, part := range f.parts[name] {
		if part.Type == Field {
			result = append(result, part.Value)
		}
	}
	return result
}

// File returns the first file received under a name, or nil
func (f *Form) File(name string) *Part {
	for _, part := range f.parts[name] {
		if part.Type == File {
			return part
		}
	}
	return nil
}

// Files returns all files received under a name in arrival order
func (f *Form) Files(name string) []*Part {
	var result []*Part
	for _, part := range f.parts[name] {
		if part.Type == File {
			result = append(result, part)
		}
	}
	return result
}

// RemoveAll deletes the stored content of every file in the form
func (f *Form) RemoveAll(ctx context.Context) error {
	var group errgroup.Group
	group.SetLimit(parallelRemoves)

	var stored []*Part
	for _, name := range f.names {
		for _, part := range f.parts[name] {
			if part.Stored() {
				stored = append(stored, part)
			}
		}
	}

	errs := make([]error, len(stored))
	for i, part := range stored {
		group.Go(func() error {
			errs[i] = part.Remove(ctx)
			return nil
		})
	}
	group.Wait()

	// Return any errors
	return errors.Join(errs...)
}

func (f *Form) MarshalJSON() ([]byte, error) {
	result := make(map[string]any, len(f.names))
	for _, name := range f.names {
		parts := f.parts[name]
		if f.collapse(name, parts) {
			result[name] = f.render(parts[0])
		} else {
			values := make([]any, 0, len(parts))
			for _, part := range parts {
				values = append(values, f.render(part))
			}
			result[name] = values
		}
	}
	return json.Marshal(result)
}

// UnmarshalJSON reads a form as rendered by MarshalJSON. String values are
// fields and object values are files. The names keep their document order.
func (f *Form) UnmarshalJSON(data []byte) error {
	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	// Read the names in document order
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	f.names, f.parts = nil, make(map[string][]*Part, len(values))
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", token)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		parts, err := parseParts(name, raw)
		if err != nil {
			return fmt.Errorf("%q: %w", name, err)
		}
		for _, part := range parts {
			f.Add(part)
		}
	}

	// Return success
	return nil
}

func (f *Form) String() string {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// collapse returns true when a name renders as a single value
func (f *Form) collapse(name string, parts []*Part) bool {
	if len(parts) != 1 {
		return false
	}
	if parts[0].Type == File {
		if c, exists := f.schema.File(name); exists && c.Multiple {
			return false
		}
	}
	return true
}

func (f *Form) render(part *Part) any {
	if part.Type == Field {
		return part.Value
	}
	return part
}

func parseParts(name string, data json.RawMessage) ([]*Part, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var values []json.RawMessage
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, err
		}
		result := make([]*Part, 0, len(values))
		for _, value := range values {
			part, err := parsePart(name, value)
			if err != nil {
				return nil, err
			}
			result = append(result, part)
		}
		return result, nil
	}
	part, err := parsePart(name, data)
	if err != nil {
		return nil, err
	}
	return []*Part{part}, nil
}

func parsePart(name string, data json.RawMessage) (*Part, error) {
	var value string
	if err := json.Unmarshal(data, &value); err == nil {
		return &Part{Type: Field, Name: name, Value: value, Size: int64(len(value))}, nil
	}
	part := new(Part)
	if err := json.Unmarshal(data, part); err != nil {
		return nil, err
	}
	part.Name = name
	return part, nil
}

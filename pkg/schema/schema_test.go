package schema_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// ERRORS

func Test_Err(t *testing.T) {
	assert := assert.New(t)

	err := schema.ErrPayloadTooLarge.Withf("body exceeds %d bytes", 10)
	assert.ErrorIs(err, schema.ErrPayloadTooLarge)
	assert.NotErrorIs(err, schema.ErrBadRequest)
	assert.Equal("Request Entity Too Large: body exceeds 10 bytes", err.Error())

	// The status survives wrapping and joining
	var code httpresponse.Err
	assert.True(errors.As(fmt.Errorf("decode: %w", schema.ErrBadRequest.With("x")), &code))
	assert.Equal(http.StatusBadRequest, int(code))
	assert.True(errors.As(errors.Join(io.EOF, schema.ErrUnsupportedMediaType.With("y")), &code))
	assert.Equal(http.StatusUnsupportedMediaType, int(code))
	assert.False(errors.As(io.EOF, &code))

	// Same type as the router errors
	assert.ErrorIs(schema.ErrNotFound.With("z"), httpresponse.ErrNotFound)
}

////////////////////////////////////////////////////////////////////////////////
// CONSTRAINTS

func Test_Schema_Validate(t *testing.T) {
	tests := []struct {
		name   string
		schema schema.Schema
		ok     bool
	}{
		{"Empty", schema.Schema{}, true},
		{"Valid", schema.Schema{
			Fields: map[string]schema.FieldConstraint{"name": {MaxSize: 10}},
			Files:  map[string]schema.FileConstraint{"doc": {Multiple: true, Min: 1, Max: 3, AllowedMimeTypes: []string{"image/*", "text/plain"}}},
		}, true},
		{"Both", schema.Schema{
			Fields: map[string]schema.FieldConstraint{"x": {}},
			Files:  map[string]schema.FileConstraint{"x": {}},
		}, false},
		{"MinExceedsMax", schema.Schema{
			Files: map[string]schema.FileConstraint{"doc": {Multiple: true, Min: 4, Max: 3}},
		}, false},
		{"MinNeedsMultiple", schema.Schema{
			Files: map[string]schema.FileConstraint{"doc": {Min: 2}},
		}, false},
		{"BadMime", schema.Schema{
			Files: map[string]schema.FileConstraint{"doc": {AllowedMimeTypes: []string{"not a type"}}},
		}, false},
		{"NegativeSize", schema.Schema{
			Fields: map[string]schema.FieldConstraint{"x": {MaxSize: -1}},
		}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.schema.Validate()
			if test.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func Test_FileConstraint_Allows(t *testing.T) {
	assert := assert.New(t)

	unconstrained := schema.FileConstraint{}
	assert.True(unconstrained.Allows("application/zip"))

	c := schema.FileConstraint{AllowedMimeTypes: []string{"image/*", "Text/Plain"}}
	assert.True(c.Allows("image/png"))
	assert.True(c.Allows("text/plain"))
	assert.False(c.Allows("text/html"))
	assert.False(c.Allows("imagex/png"))
	assert.False(c.Allows("application/octet-stream"))
}

func Test_Schema_Lookup(t *testing.T) {
	assert := assert.New(t)

	var s *schema.Schema
	_, exists := s.Field("x")
	assert.False(exists)

	s = &schema.Schema{Files: map[string]schema.FileConstraint{"doc": {Max: 2}}}
	c, exists := s.File("doc")
	assert.True(exists)
	assert.Equal(uint(2), c.Max)
	_, exists = s.Field("doc")
	assert.False(exists)
}

////////////////////////////////////////////////////////////////////////////////
// FORM

type memStorage struct {
	data    string
	removed bool
}

func (m *memStorage) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(m.data)), nil
}

func (m *memStorage) Remove(context.Context) error {
	m.removed = true
	return nil
}

func Test_Form(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	form := schema.NewForm(&schema.Schema{
		Files: map[string]schema.FileConstraint{"docs": {Multiple: true}, "avatar": {}},
	})
	storage := &memStorage{data: "hello"}
	doc := &schema.Part{Type: schema.File, Name: "docs", Filename: "a", OriginalFilename: "a.txt", ContentType: "text/plain", Size: 5}
	doc.Attach(storage)

	form.Add(&schema.Part{Type: schema.Field, Name: "tag", Value: "one"})
	form.Add(doc)
	form.Add(&schema.Part{Type: schema.Field, Name: "tag", Value: "two"})
	form.Add(&schema.Part{Type: schema.Field, Name: "title", Value: "hi"})
	form.Add(&schema.Part{Type: schema.File, Name: "avatar", Filename: "b", ContentType: "image/png"})
	form.Add(nil)

	assert.Equal([]string{"tag", "docs", "title", "avatar"}, form.Names())
	assert.Equal(5, form.Len())
	assert.Equal("one", form.Value("tag"))
	assert.Equal([]string{"one", "two"}, form.Values("tag"))
	assert.Equal(doc, form.File("docs"))
	assert.Len(form.Files("docs"), 1)
	assert.Nil(form.File("tag"))

	// Read back stored content
	r, err := form.File("docs").Open(context.Background())
	require.NoError(err)
	data, err := io.ReadAll(r)
	require.NoError(err)
	assert.Equal("hello", string(data))

	// An unstored file reads back empty
	r, err = form.File("avatar").Open(context.Background())
	require.NoError(err)
	data, err = io.ReadAll(r)
	require.NoError(err)
	assert.Empty(data)

	// JSON rendering
	var out map[string]any
	data, err = json.Marshal(form)
	require.NoError(err)
	require.NoError(json.Unmarshal(data, &out))
	assert.Equal([]any{"one", "two"}, out["tag"])
	assert.Equal("hi", out["title"])
	assert.IsType([]any{}, out["docs"])
	assert.IsType(map[string]any{}, out["avatar"])
	assert.Equal("a.txt", out["docs"].([]any)[0].(map[string]any)["original_filename"])

	// Read the rendering back
	var decoded schema.Form
	require.NoError(json.Unmarshal(data, &decoded))
	assert.ElementsMatch(form.Names(), decoded.Names())
	assert.Equal([]string{"one", "two"}, decoded.Values("tag"))
	assert.Equal("hi", decoded.Value("title"))
	if file := decoded.File("docs"); assert.NotNil(file) {
		assert.Equal("a.txt", file.OriginalFilename)
		assert.Equal(int64(5), file.Size)
		assert.False(file.Stored())
	}
	assert.NotNil(decoded.File("avatar"))
	assert.Error(json.Unmarshal([]byte(`{"a":1}`), &decoded))

	// Rollback
	require.NoError(form.RemoveAll(context.Background()))
	assert.True(storage.removed)
	assert.False(doc.Stored())
}

////////////////////////////////////////////////////////////////////////////////
// LOAD

func Test_Load(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	t.Setenv("AVATAR_MAX", "1024")
	cfg, err := schema.Load(strings.NewReader(`
schemas:
  avatar:
    fields:
      username: { max_size: 64 }
    files:
      image:
        max_file_size: ${AVATAR_MAX}
        allowed_mime_types: [ image/png, image/jpeg ]
        min: 1
  empty:
`))
	require.NoError(err)
	require.Contains(cfg.Schemas, "avatar")
	require.Contains(cfg.Schemas, "empty")
	assert.NotNil(cfg.Schemas["empty"])

	image, exists := cfg.Schemas["avatar"].File("image")
	assert.True(exists)
	assert.Equal(int64(1024), image.MaxFileSize)
	assert.Equal([]string{"image/png", "image/jpeg"}, image.AllowedMimeTypes)
	assert.Equal(uint(1), image.Min)

	username, exists := cfg.Schemas["avatar"].Field("username")
	assert.True(exists)
	assert.Equal(int64(64), username.MaxSize)
}

func Test_LoadFile(t *testing.T) {
	assert := assert.New(t)

	_, err := schema.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)

	path := filepath.Join(t.TempDir(), "invalid.yaml")
	assert.NoError(os.WriteFile(path, []byte("schemas:\n  x:\n    files:\n      f: { min: 5, max: 2, multiple: true }\n"), 0o600))
	_, err = schema.LoadFile(path)
	assert.Error(err)

	path = filepath.Join(t.TempDir(), "valid.yaml")
	assert.NoError(os.WriteFile(path, []byte("schemas:\n  x:\n    fields:\n      a: {}\n"), 0o600))
	cfg, err := schema.LoadFile(path)
	assert.NoError(err)
	assert.Contains(cfg.Schemas, "x")
}

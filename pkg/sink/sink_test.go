package sink

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

var reName = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}_\d{2}_\d{2}_\d{2}_[0-9a-f-]{36}$`)

func TestArtifactName(t *testing.T) {
	assert := assert.New(t)
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	a, b := artifactName(now), artifactName(now)
	assert.True(strings.HasPrefix(a, "2026_03_04_05_06_07_"))
	assert.Regexp(reName, a)
	assert.NotEqual(a, b)
}

func TestPreservedDir(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"a.txt", ""},
		{"", ""},
		{"photos/a.jpg", "photos"},
		{"/photos/2026/a.jpg", "photos/2026"},
		{"../../etc/passwd", "etc"},
		{"photos/../../../a.jpg", ""},
		{`C:\Users\me\a.txt`, "C:/Users/me"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, preservedDir(tt.filename))
		})
	}
}

func TestWithEndpoint(t *testing.T) {
	tests := []struct {
		name      string
		endpoint  string
		wantErr   bool
		wantQuery map[string]string
	}{
		{
			name:     "http endpoint",
			endpoint: "http://localhost:9000",
			wantQuery: map[string]string{
				"endpoint":         "http://localhost:9000",
				"s3ForcePathStyle": "true",
				"disable_https":    "true",
			},
		},
		{
			name:     "https endpoint",
			endpoint: "https://s3.example.com",
			wantQuery: map[string]string{
				"endpoint":         "https://s3.example.com",
				"s3ForcePathStyle": "true",
			},
		},
		{
			name:     "invalid scheme",
			endpoint: "ftp://example.com",
			wantErr:  true,
		},
		{
			name:     "invalid URL",
			endpoint: "://invalid",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			u, err := url.Parse("s3://mybucket")
			require.NoError(err)

			o, err := apply(u, WithEndpoint(tt.endpoint))
			if tt.wantErr {
				assert.Error(err)
				return
			}
			require.NoError(err)
			for key, want := range tt.wantQuery {
				assert.Equal(want, o.url.Query().Get(key), "query param %q", key)
			}
			if tt.wantQuery["disable_https"] == "" {
				assert.Empty(o.url.Query().Get("disable_https"))
			}
		})
	}
}

func TestOptions(t *testing.T) {
	assert := assert.New(t)

	_, err := apply(nil, WithPerm(0o600))
	assert.Error(err)
	_, err = apply(nil, WithCredentials("", "secret", ""))
	assert.Error(err)
	_, err = apply(nil, WithLogger(nil))
	assert.Error(err)

	o, err := apply(nil, WithPerm(0o750), WithPreservePath(), WithAnonymous(), WithCreateDir())
	assert.NoError(err)
	assert.Equal(os.FileMode(0o750), o.perm)
	assert.True(o.preservePath)
	assert.True(o.anonymous)
}

////////////////////////////////////////////////////////////////////////////////
// FILE PROVIDER

func TestFileProvider(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads", "nested")

	provider, err := NewFileProvider(dir)
	require.NoError(err)
	assert.Equal(dir, provider.Dir())

	// Directory is created with the first sink
	s, err := provider.CreateSink(ctx, schema.PartHeader{Name: "doc", Filename: "a.txt", ContentType: "text/plain"})
	require.NoError(err)
	assert.DirExists(dir)
	assert.Regexp(reName, s.Name())
	assert.Equal(filepath.Join(dir, s.Name()), s.Path())

	_, err = io.WriteString(s, "hello, ")
	require.NoError(err)
	_, err = io.WriteString(s, "world")
	require.NoError(err)
	require.NoError(s.Close())
	require.NoError(s.Close())

	// Read back
	r, err := s.Open(ctx)
	require.NoError(err)
	data, err := io.ReadAll(r)
	require.NoError(r.Close())
	require.NoError(err)
	assert.Equal("hello, world", string(data))

	// Remove, twice
	require.NoError(s.Remove(ctx))
	assert.NoFileExists(s.Path())
	require.NoError(s.Remove(ctx))
}

func TestFileProvider_Relative(t *testing.T) {
	assert := assert.New(t)
	t.Chdir(t.TempDir())

	provider, err := NewFileProvider("uploads")
	assert.NoError(err)
	assert.True(filepath.IsAbs(provider.Dir()))
	assert.Equal("uploads", filepath.Base(provider.Dir()))

	provider, err = NewFileProvider("")
	assert.NoError(err)
	assert.Equal(filepath.Clean(os.TempDir()), provider.Dir())
}

func TestFileProvider_PreservePath(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	provider, err := NewFileProvider(dir, WithPreservePath())
	require.NoError(err)

	s, err := provider.CreateSink(ctx, schema.PartHeader{Name: "doc", Filename: "../photos/2026/a.jpg"})
	require.NoError(err)
	require.NoError(s.Close())
	assert.Equal(filepath.Join(dir, "photos", "2026", s.Name()), s.Path())
	assert.FileExists(s.Path())
}

func TestFileProvider_CreateDirFails(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	// A file where the directory should be
	blocker := filepath.Join(dir, "blocker")
	assert.NoError(os.WriteFile(blocker, []byte("x"), 0o600))

	provider, err := NewFileProvider(filepath.Join(blocker, "uploads"))
	assert.NoError(err)
	_, err = provider.CreateSink(context.Background(), schema.PartHeader{Name: "doc"})
	assert.Error(err)
	assert.ErrorIs(err, schema.ErrInternalError)
}

////////////////////////////////////////////////////////////////////////////////
// BLOB PROVIDER

func TestBlobProvider(t *testing.T) {
	tests := []struct {
		name   string
		url    func(t *testing.T) string
		prefix string
	}{
		{"mem", func(t *testing.T) string { return "mem://uploads" }, ""},
		{"mem with prefix", func(t *testing.T) string { return "mem://uploads/incoming/" }, "incoming/"},
		{"file", func(t *testing.T) string { return "file://uploads" + t.TempDir() }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			provider, err := NewBlobProvider(ctx, tt.url(t))
			require.NoError(err)
			defer provider.Close()
			assert.Equal("uploads", provider.Name())
			assert.Empty(provider.URL().RawQuery)

			s, err := provider.CreateSink(ctx, schema.PartHeader{Name: "doc", Filename: "a.txt", ContentType: "text/plain"})
			require.NoError(err)
			assert.Regexp(reName, s.Name())
			assert.Equal("uploads:/"+s.Name(), s.Path())

			_, err = io.WriteString(s, "hello")
			require.NoError(err)
			require.NoError(s.Close())
			require.NoError(s.Close())

			// Stored under the prefix with metadata
			attrs, err := provider.bucket.Attributes(ctx, tt.prefix+s.Name())
			require.NoError(err)
			assert.Equal(int64(5), attrs.Size)
			assert.Equal("doc", attrs.Metadata[schema.MetaName])
			assert.Equal("a.txt", attrs.Metadata[schema.MetaFilename])

			// Read back
			r, err := s.Open(ctx)
			require.NoError(err)
			data, err := io.ReadAll(r)
			require.NoError(r.Close())
			require.NoError(err)
			assert.Equal("hello", string(data))

			// Remove, twice
			require.NoError(s.Remove(ctx))
			_, err = s.Open(ctx)
			assert.ErrorIs(err, schema.ErrNotFound)
			require.NoError(s.Remove(ctx))
		})
	}
}

func TestBlobProvider_PreservePath(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	provider, err := NewBlobProvider(ctx, "mem://uploads", WithPreservePath())
	require.NoError(err)
	defer provider.Close()

	s, err := provider.CreateSink(ctx, schema.PartHeader{Name: "doc", Filename: "photos/a.jpg"})
	require.NoError(err)
	require.NoError(s.Close())
	assert.Equal("uploads:/photos/"+s.Name(), s.Path())

	exists, err := provider.bucket.Exists(ctx, "photos/"+s.Name())
	require.NoError(err)
	assert.True(exists)
}

func TestBlobProvider_InvalidName(t *testing.T) {
	assert := assert.New(t)

	_, err := NewBlobProvider(context.Background(), "mem://9bad")
	assert.Error(err)
	_, err = NewBlobProvider(context.Background(), "mem://")
	assert.Error(err)
}

func TestBlobErr(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	provider, err := NewBlobProvider(ctx, "mem://uploads")
	require.NoError(t, err)
	defer provider.Close()

	// Missing objects map to not found
	_, err = provider.bucket.NewReader(ctx, "missing", nil)
	assert.ErrorIs(blobErr(err, "uploads:/missing"), schema.ErrNotFound)
	assert.ErrorContains(blobErr(err, "uploads:/missing"), `object "uploads:/missing" not found`)

	// Other errors are internal
	assert.ErrorIs(blobErr(errors.New("boom"), "uploads:/x"), schema.ErrInternalError)
	assert.NoError(blobErr(nil, "uploads:/x"))
}

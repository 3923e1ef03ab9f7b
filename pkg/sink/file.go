package sink

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	// Packages
	formdata "github.com/mutablelogic/go-formdata"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// FileProvider writes file parts into a directory on the local filesystem
type FileProvider struct {
	*opt
	dir string
	now func() time.Time
}

type filesink struct {
	*os.File
	name string
	path string
}

var _ formdata.SinkProvider = (*FileProvider)(nil)
var _ formdata.Sink = (*filesink)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewFileProvider returns a provider which writes into dir. An empty dir is
// the OS temporary directory, and a relative dir is resolved against the
// working directory. The directory is created when the first sink is.
func NewFileProvider(dir string, opts ...Opt) (*FileProvider, error) {
	self := new(FileProvider)

	// Apply the options
	if opt, err := apply(nil, opts...); err != nil {
		return nil, err
	} else {
		self.opt = opt
	}

	// Resolve the directory
	if dir == "" {
		dir = os.TempDir()
	}
	if abs, err := filepath.Abs(dir); err != nil {
		return nil, err
	} else {
		self.dir = abs
	}
	self.now = time.Now

	// Return success
	return self, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Dir returns the root directory of the provider
func (p *FileProvider) Dir() string {
	return p.dir
}

// CreateSink creates the directory if needed and opens a new file for writing
func (p *FileProvider) CreateSink(ctx context.Context, hdr schema.PartHeader) (formdata.Sink, error) {
	dir := p.dir
	if p.preservePath {
		if sub := preservedDir(hdr.Filename); sub != "" {
			dir = filepath.Join(dir, filepath.FromSlash(sub))
		}
	}
	if err := os.MkdirAll(dir, p.perm); err != nil {
		return nil, schema.ErrInternalError.Withf("cannot create upload directory: %v", err)
	}

	// Create the file, which must not already exist
	name := artifactName(p.now())
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, schema.ErrInternalError.Withf("cannot create upload file: %v", err)
	}

	p.logger.DebugContext(ctx, "created file sink", "name", hdr.Name, "path", path)

	// Return success
	return &filesink{File: f, name: name, path: path}, nil
}

// Name returns the name of the stored file
func (s *filesink) Name() string {
	return s.name
}

// Path returns the absolute path of the stored file
func (s *filesink) Path() string {
	return s.path
}

// Open the stored file for reading
func (s *filesink) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(s.path)
}

// Remove the stored file. A file which no longer exists is not an error.
func (s *filesink) Remove(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close the file. Closing more than once is not an error.
func (s *filesink) Close() error {
	if err := s.File.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

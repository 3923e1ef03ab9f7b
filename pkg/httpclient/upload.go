package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"

	// Packages
	client "github.com/mutablelogic/go-client"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// wellKnownMIME maps file extensions that Go's mime package may not know about
// (especially on macOS) to their canonical MIME type.
var wellKnownMIME = map[string]string{
	".md":   "text/markdown",
	".csv":  "text/csv",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
	".webp": "image/webp",
	".heic": "image/heic",
}

var quoteEscaper = strings.NewReplacer("\"", "%22", "\r", "%0D", "\n", "%0A")

// progressChunk is the number of bytes sent between progress callbacks
const progressChunk = 64 * 1024

// MIMEByExt returns the MIME type for a file extension, consulting wellKnownMIME
// first and then the system MIME database.
func MIMEByExt(ext string) string {
	if ct, ok := wellKnownMIME[strings.ToLower(ext)]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

///////////////////////////////////////////////////////////////////////////////
// TYPES

// UploadOpt adds a part to a form upload, or configures the upload.
type UploadOpt func(*uploadOpts) error

type uploadOpts struct {
	parts    []uploadPart
	progress func(written int64)
}

// uploadPart is a field when open is nil
type uploadPart struct {
	name     string
	value    string
	filename string
	open     func() (io.ReadCloser, string, error)
}

// formPayload implements client.Payload for a streaming multipart body.
type formPayload struct {
	r           io.Reader
	contentType string
}

var _ client.Payload = (*formPayload)(nil)

///////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithField adds a text field. Repeated names are sent in order.
func WithField(name, value string) UploadOpt {
	return func(o *uploadOpts) error {
		if name == "" {
			return fmt.Errorf("field name cannot be empty")
		}
		o.parts = append(o.parts, uploadPart{name: name, value: value})
		return nil
	}
}

// WithFile adds a file with content read from r. An empty content type
// is sent as application/octet-stream.
func WithFile(name, filename, contentType string, r io.Reader) UploadOpt {
	return func(o *uploadOpts) error {
		if name == "" {
			return fmt.Errorf("file field name cannot be empty")
		} else if r == nil {
			return fmt.Errorf("file %q: reader cannot be nil", name)
		}
		if contentType == "" {
			contentType = types.ContentTypeBinary
		}
		o.parts = append(o.parts, uploadPart{name: name, filename: filename, open: func() (io.ReadCloser, string, error) {
			return io.NopCloser(r), contentType, nil
		}})
		return nil
	}
}

// WithPath adds a file read from fsys. The file is opened when its part is
// sent. The content type is derived from the extension, or sniffed from the
// first bytes of content when the extension is unknown.
func WithPath(name string, fsys fs.FS, filepath string) UploadOpt {
	return func(o *uploadOpts) error {
		if name == "" {
			return fmt.Errorf("file field name cannot be empty")
		} else if !fs.ValidPath(filepath) {
			return fmt.Errorf("invalid path %q", filepath)
		}
		o.parts = append(o.parts, uploadPart{name: name, filename: path.Base(filepath), open: func() (io.ReadCloser, string, error) {
			return openPath(fsys, filepath)
		}})
		return nil
	}
}

// WithProgress sets a callback which receives the number of body bytes sent
// so far, every 64 KiB and at the end of the body.
func WithProgress(fn func(written int64)) UploadOpt {
	return func(o *uploadOpts) error {
		o.progress = fn
		return nil
	}
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Upload submits a form to the named schema as a single streaming
// multipart/form-data POST, and returns the parts the server accepted.
func (c *Client) Upload(ctx context.Context, name string, opts ...UploadOpt) (*schema.Form, error) {
	o := new(uploadOpts)
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	// Encode the body as the request reads it. Closing the reader stops the
	// encoder if the request returns before the body is consumed.
	pr, pw := io.Pipe()
	defer pr.Close()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeParts(w, o.parts))
	}()

	// Count the bytes read by the transport
	payload := &formPayload{r: pr, contentType: w.FormDataContentType()}
	if o.progress != nil {
		payload.r = newProgressReader(pr, o.progress)
	}

	var response schema.Form
	if err := c.DoWithContext(ctx, payload, &response,
		client.OptPath(name),
		client.OptNoTimeout(),
	); err != nil {
		return nil, err
	}
	return &response, nil
}

///////////////////////////////////////////////////////////////////////////////
// INTERFACE IMPLEMENTATION

func (p *formPayload) Method() string {
	return http.MethodPost
}

func (p *formPayload) Accept() string {
	return types.ContentTypeJSON
}

func (p *formPayload) Type() string {
	return p.contentType
}

func (p *formPayload) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE HELPERS

// writeParts encodes every part and the closing delimiter
func writeParts(w *multipart.Writer, parts []uploadPart) error {
	for _, part := range parts {
		if part.open == nil {
			if err := writeField(w, part); err != nil {
				return err
			}
			continue
		}
		if err := writeFile(w, part); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeField(w *multipart.Writer, part uploadPart) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", "form-data; name=\""+escapeQuotes(part.name)+"\"")
	dst, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.WriteString(dst, part.value)
	return err
}

func writeFile(w *multipart.Writer, part uploadPart) error {
	body, contentType, err := part.open()
	if err != nil {
		return err
	}
	defer body.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", "form-data; name=\""+escapeQuotes(part.name)+"\"; filename=\""+escapeQuotes(part.filename)+"\"")
	h.Set(types.ContentTypeHeader, contentType)
	dst, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, body)
	return err
}

// escapeQuotes percent-encodes the bytes which cannot appear in a quoted
// parameter, as browsers do. Other bytes are sent as-is.
func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// openPath opens a file and determines its content type
func openPath(fsys fs.FS, filepath string) (io.ReadCloser, string, error) {
	f, err := fsys.Open(filepath)
	if err != nil {
		return nil, "", err
	}
	ct := MIMEByExt(path.Ext(filepath))
	if ct != "" && ct != types.ContentTypeBinary {
		return f, ct, nil
	}

	// Sniff the first 512 bytes, then stitch them back onto the front of the
	// reader, keeping the original file as the Closer
	var buf [512]byte
	n, err := io.ReadFull(f, buf[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", errors.Join(err, f.Close())
	}
	return struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf[:n]), f), f}, http.DetectContentType(buf[:n]), nil
}

type progressReader struct {
	r        io.Reader
	written  int64
	lastEmit int64
	cb       func(written int64)
}

func newProgressReader(r io.Reader, cb func(written int64)) io.Reader {
	return &progressReader{r: r, cb: cb}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.written += int64(n)
		if r.written-r.lastEmit >= progressChunk {
			r.lastEmit = r.written
			r.cb(r.written)
		}
	}
	if errors.Is(err, io.EOF) && r.lastEmit != r.written {
		r.lastEmit = r.written
		r.cb(r.written)
	}
	return n, err
}

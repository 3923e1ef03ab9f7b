package httpclient_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	// Packages
	httpclient "github.com/mutablelogic/go-formdata/pkg/httpclient"
)

func TestUpload(t *testing.T) {
	c, cleanup := newTestServer(t)
	defer cleanup()

	memFS := fstest.MapFS{
		"me.png":    {Data: []byte("\x89PNG\r\n\x1a\npixels")},
		"notes.txt": {Data: []byte("first\r\n--not a boundary\r\n")},
	}

	var progress int64
	form, err := c.Upload(context.Background(), "avatar",
		httpclient.WithField("username", "alice"),
		httpclient.WithField("tag", "a"),
		httpclient.WithField("tag", "b"),
		httpclient.WithField("ignored", "x"),
		httpclient.WithPath("image", memFS, "me.png"),
		httpclient.WithPath("docs", memFS, "notes.txt"),
		httpclient.WithFile("docs", "inline.bin", "", strings.NewReader("inline")),
		httpclient.WithProgress(func(written int64) { progress = written }),
	)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if v := form.Value("username"); v != "alice" {
		t.Errorf("expected username alice, got %q", v)
	}
	if v := form.Values("tag"); len(v) != 2 || v[0] != "a" || v[1] != "b" {
		t.Errorf("expected tags [a b], got %v", v)
	}
	if v := form.Value("ignored"); v != "" {
		t.Errorf("expected ignored field to be dropped, got %q", v)
	}
	image := form.File("image")
	if image == nil || image.ContentType != "image/png" || image.OriginalFilename != "me.png" {
		t.Errorf("unexpected image %+v", image)
	}
	docs := form.Files("docs")
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Size != int64(len(memFS["notes.txt"].Data)) {
		t.Errorf("expected notes.txt size %d, got %d", len(memFS["notes.txt"].Data), docs[0].Size)
	}
	if docs[1].ContentType != "application/octet-stream" {
		t.Errorf("expected octet-stream, got %q", docs[1].ContentType)
	}
	if progress == 0 {
		t.Error("expected progress to be reported")
	}
}

func TestUpload_sniff(t *testing.T) {
	c, cleanup := newTestServer(t)
	defer cleanup()

	memFS := fstest.MapFS{"picture": {Data: []byte("GIF89a....")}}
	form, err := c.Upload(context.Background(), "avatar", httpclient.WithPath("image", memFS, "picture"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if image := form.File("image"); image == nil || image.ContentType != "image/gif" {
		t.Errorf("expected sniffed image/gif, got %+v", image)
	}
}

func TestUpload_filenames(t *testing.T) {
	c, cleanup := newTestServer(t)
	defer cleanup()

	tests := []struct {
		filename string
		expected string
	}{
		{"plain.txt", "plain.txt"},
		{"naïve résumé.txt", "naïve résumé.txt"},
		{`C:\docs\report.txt`, `C:\docs\report.txt`},
		{"tab\there.txt", "tab\there.txt"},
		{"日本語.txt", "日本語.txt"},
		{`say "hi".txt`, "say %22hi%22.txt"},
		{"line\nbreak.txt", "line%0Abreak.txt"},
	}
	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			form, err := c.Upload(context.Background(), "avatar",
				httpclient.WithFile("docs", test.filename, "text/plain", strings.NewReader("content")),
			)
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			docs := form.Files("docs")
			if len(docs) != 1 {
				t.Fatalf("expected 1 doc, got %d", len(docs))
			}
			if docs[0].OriginalFilename != test.expected {
				t.Errorf("expected filename %q, got %q", test.expected, docs[0].OriginalFilename)
			}
		})
	}
}

func TestUpload_errors(t *testing.T) {
	c, cleanup := newTestServer(t)
	defer cleanup()

	memFS := fstest.MapFS{"a.pdf": {Data: []byte("%PDF-1.4")}}

	// Rejected by the schema
	if _, err := c.Upload(context.Background(), "avatar", httpclient.WithPath("image", memFS, "a.pdf")); err == nil {
		t.Error("expected error for disallowed content type")
	}

	// Unknown schema
	if _, err := c.Upload(context.Background(), "missing", httpclient.WithField("a", "b")); err == nil {
		t.Error("expected error for missing schema")
	}

	// Missing file
	if _, err := c.Upload(context.Background(), "avatar", httpclient.WithPath("image", memFS, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}

	// Invalid options
	if _, err := c.Upload(context.Background(), "avatar", httpclient.WithField("", "b")); err == nil {
		t.Error("expected error for empty field name")
	}
	if _, err := c.Upload(context.Background(), "avatar", httpclient.WithPath("image", memFS, "../a.pdf")); err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestMIMEByExt(t *testing.T) {
	tests := map[string]string{
		".md":   "text/markdown",
		".YAML": "application/yaml",
		".png":  "image/png",
		".zzz":  "",
	}
	for ext, want := range tests {
		if got := httpclient.MIMEByExt(ext); got != want {
			t.Errorf("MIMEByExt(%q) = %q, want %q", ext, got, want)
		}
	}
}

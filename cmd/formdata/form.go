package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Packages
	decoder "github.com/mutablelogic/go-formdata/pkg/decoder"
	httpclient "github.com/mutablelogic/go-formdata/pkg/httpclient"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type FormCommands struct {
	Schemas ListSchemasCommand `cmd:"" name:"schemas" group:"CLIENT" help:"List the schemas of a server"`
	Schema  GetSchemaCommand   `cmd:"" name:"schema" group:"CLIENT" help:"Get a schema from a server"`
	Upload  UploadCommand      `cmd:"" name:"upload" group:"CLIENT" help:"Upload fields and files to a server"`
	Decode  DecodeCommand      `cmd:"" name:"decode" group:"LOCAL" help:"Decode a multipart/form-data body from a file"`
}

type ListSchemasCommand struct{}

type GetSchemaCommand struct {
	Name string `arg:"" help:"Schema name"`
}

type UploadCommand struct {
	GetSchemaCommand
	Field map[string]string `name:"field" short:"f" help:"Field as name=value" mapsep:"none"`
	File  []string          `name:"file" help:"File as name=path, may be repeated"`
}

type DecodeCommand struct {
	GetSchemaCommand
	Path        string `arg:"" type:"existingfile" help:"File containing the body"`
	ContentType string `name:"content-type" help:"Content-Type header of the body, detected from the first line when empty"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *ListSchemasCommand) Run(app *Globals) error {
	return run(app, func(ctx context.Context, c *httpclient.Client) error {
		schemas, err := c.ListSchemas(ctx)
		if err != nil {
			return err
		}
		fmt.Println(schemas)
		return nil
	})
}

func (cmd *GetSchemaCommand) Run(app *Globals) error {
	return run(app, func(ctx context.Context, c *httpclient.Client) error {
		s, err := c.GetSchema(ctx, cmd.Name)
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	})
}

func (cmd *UploadCommand) Run(app *Globals) error {
	opts := make([]httpclient.UploadOpt, 0, len(cmd.Field)+len(cmd.File)+1)
	for name, value := range cmd.Field {
		opts = append(opts, httpclient.WithField(name, value))
	}
	for _, file := range cmd.File {
		name, path, ok := strings.Cut(file, "=")
		if !ok {
			return fmt.Errorf("invalid file %q, expected name=path", file)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		opts = append(opts, httpclient.WithPath(name, os.DirFS(filepath.Dir(abs)), filepath.Base(abs)))
	}

	// Report progress at most once a second
	now := time.Now()
	opts = append(opts, httpclient.WithProgress(func(written int64) {
		if time.Since(now) > time.Second {
			fmt.Fprintf(os.Stderr, "Uploaded %v bytes\r", written)
			now = time.Now()
		}
	}))

	return run(app, func(ctx context.Context, c *httpclient.Client) error {
		form, err := c.Upload(ctx, cmd.Name, opts...)
		if err != nil {
			return err
		}
		fmt.Println(form)
		return nil
	})
}

func (cmd *DecodeCommand) Run(app *Globals) error {
	mgr, err := app.Manager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	f, err := os.Open(cmd.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	// Determine the content type
	var body io.Reader = f
	contentType := cmd.ContentType
	if contentType == "" {
		if contentType, body, err = detectContentType(f); err != nil {
			return err
		}
	}

	form, err := mgr.Decode(app.ctx, cmd.Name, contentType, body)
	if err != nil {
		return err
	}
	fmt.Println(form)
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func run(app *Globals, fn func(context.Context, *httpclient.Client) error) error {
	c, err := app.Client()
	if err != nil {
		return err
	}
	return fn(app.ctx, c)
}

// detectContentType reads the first delimiter line of a body, and returns
// the content type and a reader for the whole body
func detectContentType(r io.Reader) (string, io.Reader, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return "", nil, err
	}
	boundary, ok := bytes.CutPrefix(bytes.TrimRight(line, "\r\n"), []byte("--"))
	if !ok || len(boundary) == 0 {
		return "", nil, schema.ErrBadRequest.With("body does not start with a delimiter")
	}
	contentType := fmt.Sprintf("%s; boundary=%q", decoder.ContentTypeFormData, boundary)
	return contentType, io.MultiReader(bytes.NewReader(line), br), nil
}

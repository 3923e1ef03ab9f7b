package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	// Packages
	kong "github.com/alecthomas/kong"
	client "github.com/mutablelogic/go-client"
	httpclient "github.com/mutablelogic/go-formdata/pkg/httpclient"
	manager "github.com/mutablelogic/go-formdata/pkg/manager"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	sink "github.com/mutablelogic/go-formdata/pkg/sink"
	types "github.com/mutablelogic/go-server/pkg/types"
	otel "go.opentelemetry.io/otel"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	Debug bool `help:"Enable debug output"`
	JSON  bool `name:"json" help:"Write logs as JSON"`

	HTTP struct {
		Addr    string        `name:"addr" env:"FORMDATA_ADDR" default:"localhost:8080" help:"Server listen address"`
		Prefix  string        `name:"prefix" env:"FORMDATA_PREFIX" default:"/api/formdata" help:"Server path prefix"`
		Origin  string        `name:"origin" env:"FORMDATA_ORIGIN" default:"" help:"Cross-origin protection origin, or * to allow all"`
		Timeout time.Duration `name:"timeout" env:"FORMDATA_TIMEOUT" default:"0" help:"Client request timeout"`
	} `embed:"" prefix:"http."`

	Form struct {
		Schemas      string `name:"schemas" env:"FORMDATA_SCHEMAS" type:"path" help:"YAML file of form schemas"`
		Sink         string `name:"sink" env:"FORMDATA_SINK" help:"Where files are stored: a directory, or a bucket URL (mem://, file://, s3://)"`
		Endpoint     string `name:"endpoint" env:"FORMDATA_S3_ENDPOINT" help:"S3-compatible endpoint URL"`
		Anonymous    bool   `name:"anonymous" help:"Use anonymous S3 credentials"`
		PreservePath bool   `name:"preserve-path" help:"Keep the directory of client supplied filenames"`
		MaxBodySize  int64  `name:"max-body-size" env:"FORMDATA_MAX_BODY_SIZE" default:"${MAX_BODY_SIZE}" help:"Largest body accepted, in bytes (0 is unlimited)"`
		SkipRejected bool   `name:"skip-rejected" help:"Drop parts which violate the schema rather than failing the body"`
	} `embed:"" prefix:"form."`

	vars   kong.Vars `kong:"-"` // Variables for kong
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func NewApp(app Globals, vars kong.Vars) (*Globals, error) {
	// Set the vars
	app.vars = vars

	// Set the logger
	level := slog.LevelInfo
	if app.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if app.JSON {
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	} else {
		app.logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	slog.SetDefault(app.logger)

	// Create the context
	// This context is cancelled when the process receives a SIGINT or SIGTERM
	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Return the app
	return &app, nil
}

func (app *Globals) Close() error {
	app.cancel()
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Manager builds a form manager from the global form flags.
func (app *Globals) Manager() (*manager.Manager, error) {
	opts := []manager.Opt{
		manager.WithLogger(app.logger),
		manager.WithTracer(otel.Tracer(schema.SchemaName)),
		manager.WithMaxBodySize(app.Form.MaxBodySize),
		manager.WithSkipRejected(app.Form.SkipRejected),
	}

	// Schemas
	if app.Form.Schemas != "" {
		cfg, err := schema.LoadFile(app.Form.Schemas)
		if err != nil {
			return nil, err
		}
		opts = append(opts, manager.WithSchemas(cfg))
	}

	// Sink
	if sinkOpts, err := app.sinkOpts(); err != nil {
		return nil, err
	} else if strings.Contains(app.Form.Sink, "://") {
		opts = append(opts, manager.WithBlobSink(app.ctx, app.Form.Sink, sinkOpts...))
	} else {
		opts = append(opts, manager.WithFileSink(app.Form.Sink, sinkOpts...))
	}

	return manager.New(app.ctx, opts...)
}

// Client builds a form HTTP client from the global HTTP flags.
func (app *Globals) Client() (*httpclient.Client, error) {
	endpoint, err := app.clientEndpoint()
	if err != nil {
		return nil, err
	}
	opts := []client.ClientOpt{}
	if app.Debug {
		opts = append(opts, client.OptTrace(os.Stderr, false))
	}
	if app.HTTP.Timeout > 0 {
		opts = append(opts, client.OptTimeout(app.HTTP.Timeout))
	}
	return httpclient.New(endpoint, opts...)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (app *Globals) sinkOpts() ([]sink.Opt, error) {
	opts := []sink.Opt{sink.WithLogger(app.logger)}
	if app.Form.PreservePath {
		opts = append(opts, sink.WithPreservePath())
	}
	if !strings.HasPrefix(app.Form.Sink, "s3://") {
		return opts, nil
	}
	if app.Form.Endpoint != "" {
		if _, err := url.Parse(app.Form.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid endpoint: %w", err)
		}
		opts = append(opts, sink.WithEndpoint(app.Form.Endpoint))
	}
	if app.Form.Anonymous {
		opts = append(opts, sink.WithAnonymous())
	}
	return append(opts, sink.WithTracer(otel.Tracer(schema.SchemaName))), nil
}

func (app *Globals) clientEndpoint() (string, error) {
	scheme := "http"
	host, port, err := net.SplitHostPort(app.HTTP.Addr)
	if err != nil {
		return "", err
	}
	if host == "" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	portn, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return "", err
	}
	if portn == 443 {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%v%s", scheme, host, portn, types.NormalisePath(app.HTTP.Prefix)), nil
}

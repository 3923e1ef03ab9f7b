package sink

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	url          *url.URL
	awsConfig    *aws.Config
	endpoint     string       // raw endpoint URL set via WithEndpoint; wired into awsConfig when both are present
	anonymous    bool         // forces anonymous credentials
	accessKey    string       // static credentials set via WithCredentials
	secretKey    string       // static credentials set via WithCredentials
	sessionToken string       // static credentials set via WithCredentials
	tracer       trace.Tracer // optional OTel tracer; when set, AWS SDK middleware is injected
	preservePath bool         // keep the directory component of client filenames
	perm         os.FileMode  // directory permissions for file sinks
	logger       *slog.Logger
}

// Opt is a functional option for sink providers
type Opt func(*opt) error

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	defaultDirPerm = os.FileMode(0o755)
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func apply(url *url.URL, opts ...Opt) (*opt, error) {
	// Apply options
	o := opt{url: url, perm: defaultDirPerm, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	// Return success
	return &o, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WithEndpoint sets the S3 endpoint for S3-compatible services.
// For http:// endpoints, HTTPS is automatically disabled.
func WithEndpoint(endpoint string) Opt {
	return func(o *opt) error {
		if endpoint, err := url.Parse(endpoint); err != nil {
			return err
		} else if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
			return fmt.Errorf("endpoint must be http:// or https://, got %s://", endpoint.Scheme)
		} else {
			o.endpoint = endpoint.String()
			o.set("endpoint", endpoint.String())
			o.set("s3ForcePathStyle", "true")
			if endpoint.Scheme == "http" {
				o.set("disable_https", "true")
			}
		}
		return nil
	}
}

// WithAnonymous forces use of anonymous credentials.
// Use this for S3-compatible services that don't require authentication.
func WithAnonymous() Opt {
	return func(o *opt) error {
		o.anonymous = true
		o.set("anonymous", "true")
		return nil
	}
}

// WithCredentials sets static credentials for s3:// sinks
func WithCredentials(accessKey, secretKey, sessionToken string) Opt {
	return func(o *opt) error {
		if accessKey == "" || secretKey == "" {
			return fmt.Errorf("access key and secret key are required")
		}
		o.accessKey, o.secretKey, o.sessionToken = accessKey, secretKey, sessionToken
		return nil
	}
}

// WithCreateDir sets create_dir=true for file:// URLs to create the directory if it doesn't exist
func WithCreateDir() Opt {
	return func(o *opt) error {
		o.set("create_dir", "true")
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer. When set on an s3:// provider,
// AWS SDK middleware is injected so each S3 API call produces a child span.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opt) error {
		o.tracer = tracer
		return nil
	}
}

// WithAWSConfig provides an AWS SDK v2 Config directly, which is used
// instead of the URL-based configuration for s3:// URLs.
func WithAWSConfig(cfg aws.Config) Opt {
	return func(o *opt) error {
		o.awsConfig = &cfg
		return nil
	}
}

// WithPreservePath keeps the directory component of a client-supplied
// filename, nested under the provider root
func WithPreservePath() Opt {
	return func(o *opt) error {
		o.preservePath = true
		return nil
	}
}

// WithPerm sets the permissions of directories created by file sinks
func WithPerm(perm os.FileMode) Opt {
	return func(o *opt) error {
		if perm&0o700 != 0o700 {
			return fmt.Errorf("directory permissions %v must include owner rwx", perm)
		}
		o.perm = perm
		return nil
	}
}

// WithLogger sets the logger used to report cleanup failures
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opt) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (o *opt) set(key, value string) {
	if o.url == nil {
		return
	}
	q := o.url.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	o.url.RawQuery = q.Encode()
}

package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	config "github.com/aws/aws-sdk-go-v2/config"
	credentials "github.com/aws/aws-sdk-go-v2/credentials"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	formdata "github.com/mutablelogic/go-formdata"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
	otelaws "go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	blob "gocloud.dev/blob"
	s3blob "gocloud.dev/blob/s3blob"

	// Drivers
	_ "gocloud.dev/blob/fileblob" // file:// URLs
	_ "gocloud.dev/blob/memblob"  // mem:// URLs
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// BlobProvider writes file parts into a Go CDK bucket
type BlobProvider struct {
	*opt
	bucket       *blob.Bucket
	bucketPrefix string // key prefix for bucket operations (empty for file://)
	now          func() time.Time
}

type blobsink struct {
	*blob.Writer
	bucket *blob.Bucket
	key    string
	name   string
	path   string
}

var _ formdata.SinkProvider = (*BlobProvider)(nil)
var _ formdata.Sink = (*blobsink)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewBlobProvider creates a provider which writes into a bucket.
// Supported URL schemes: s3://, file://, mem://
// Examples:
//   - "s3://my-bucket/uploads?region=us-east-1"
//   - "file://uploads/path/to/directory"
//   - "mem://uploads"
//
// The host of the URL is the name of the provider. For s3:// and mem:// the
// path is a key prefix, and for file:// it is the root directory.
func NewBlobProvider(ctx context.Context, u string, opts ...Opt) (*BlobProvider, error) {
	self := new(BlobProvider)

	// Set the options
	if url, err := url.Parse(u); err != nil {
		return nil, err
	} else if opt, err := apply(url, opts...); err != nil {
		return nil, err
	} else {
		self.opt = opt
	}

	// Validate the provider name (URL host) is a valid identifier
	if !types.IsIdentifier(self.url.Host) {
		return nil, fmt.Errorf("sink name %q must be a valid identifier (letter, digits, underscores, hyphens; max 64 chars)", self.url.Host)
	}
	if self.url.Scheme != "file" {
		self.bucketPrefix = strings.Trim(self.url.Path, "/")
	}
	self.now = time.Now

	// Open the bucket
	client, err := self.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	var bucket *blob.Bucket
	switch {
	case client != nil:
		// Use the explicit AWS configuration to open the S3 bucket directly
		bucket, err = s3blob.OpenBucket(ctx, client, self.url.Host, nil)
	case self.url.Scheme == "file":
		// For file:// the path is the bucket root dir
		openURL := &url.URL{Scheme: "file", Path: self.url.Path, RawQuery: self.url.RawQuery}
		bucket, err = blob.OpenBucket(ctx, openURL.String())
	default:
		// For s3, mem, etc.: open at root (strip path) to avoid PrefixedBucket
		openURL := *self.url
		openURL.Path = ""
		openURL.RawPath = ""
		bucket, err = blob.OpenBucket(ctx, openURL.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	self.bucket = bucket

	// Return success
	return self, nil
}

// Close the bucket
func (p *BlobProvider) Close() error {
	var result error
	if p.bucket != nil {
		result = errors.Join(result, p.bucket.Close())
		p.bucket = nil
	}

	// Return any errors
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Name returns the name of the provider (the host component of the URL)
func (p *BlobProvider) Name() string {
	return p.url.Host
}

// URL returns the destination of the provider, without query parameters
func (p *BlobProvider) URL() *url.URL {
	u := *p.url
	u.RawQuery = ""
	return &u
}

// CreateSink opens a writer for a new object. The part content type and
// names are stored as object metadata.
func (p *BlobProvider) CreateSink(ctx context.Context, hdr schema.PartHeader) (formdata.Sink, error) {
	name := artifactName(p.now())
	key := name
	if p.preservePath {
		if sub := preservedDir(hdr.Filename); sub != "" {
			key = path.Join(sub, name)
		}
	}
	sk := p.storageKey(key)
	objpath := p.Name() + ":/" + key

	// Create the writer. The writer is aborted when the context is cancelled.
	w, err := p.bucket.NewWriter(ctx, sk, &blob.WriterOptions{
		ContentType: hdr.ContentType,
		Metadata: map[string]string{
			schema.MetaName:     hdr.Name,
			schema.MetaFilename: hdr.Filename,
		},
	})
	if err != nil {
		return nil, blobErr(err, objpath)
	}

	p.logger.DebugContext(ctx, "created blob sink", "name", hdr.Name, "path", objpath)

	// Return success
	return &blobsink{Writer: w, bucket: p.bucket, key: sk, name: name, path: objpath}, nil
}

// Name returns the name of the stored object
func (s *blobsink) Name() string {
	return s.name
}

// Path returns the provider name and key of the stored object
func (s *blobsink) Path() string {
	return s.path
}

// Open the stored object for reading
func (s *blobsink) Open(ctx context.Context) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, s.key, nil)
	if err != nil {
		return nil, blobErr(err, s.path)
	}
	return r, nil
}

// Remove the stored object. An object which does not exist is not an error.
func (s *blobsink) Remove(ctx context.Context) error {
	if err := s.bucket.Delete(ctx, s.key); err != nil && !isNotFound(err) {
		return blobErr(err, s.path)
	}
	return nil
}

// Close commits the object. Closing more than once is not an error.
func (s *blobsink) Close() error {
	if s.Writer == nil {
		return nil
	}
	w := s.Writer
	s.Writer = nil
	return blobErr(w.Close(), s.path)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// storageKey prepends the bucket prefix (for s3/mem where the bucket opens at
// the host level)
func (p *BlobProvider) storageKey(key string) string {
	if p.bucketPrefix != "" {
		return p.bucketPrefix + "/" + key
	}
	return key
}

// s3Client returns an S3 client when the AWS configuration is explicit
// (provided, or implied by credentials or tracing), or nil when the bucket
// should be opened from the URL alone
func (p *BlobProvider) s3Client(ctx context.Context) (*s3.Client, error) {
	if p.url.Scheme != "s3" {
		return nil, nil
	} else if p.awsConfig == nil && p.accessKey == "" && p.tracer == nil {
		return nil, nil
	}

	// Load the configuration
	var cfg aws.Config
	if p.awsConfig != nil {
		cfg = p.awsConfig.Copy()
	} else {
		var opts []func(*config.LoadOptions) error
		if region := p.url.Query().Get("region"); region != "" {
			opts = append(opts, config.WithRegion(region))
		}
		if p.accessKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(p.accessKey, p.secretKey, p.sessionToken),
			))
		}
		if loaded, err := config.LoadDefaultConfig(ctx, opts...); err != nil {
			return nil, err
		} else {
			cfg = loaded
		}
	}
	if p.anonymous {
		cfg.Credentials = aws.AnonymousCredentials{}
	}
	if p.tracer != nil {
		otelaws.AppendMiddlewares(&cfg.APIOptions)
	}

	// Create the client
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.endpoint != "" {
			o.BaseEndpoint = aws.String(p.endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Package mongo hosts uploaded attachments in MongoDB GridFS and hands out
// public URLs the generation provider can fetch. When no public base URL is
// configured the host refuses uploads, which callers treat as a signal to
// fall back to inline transfer.
package mongo

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"
)

const (
	defaultBucketName = "attachments"
	defaultOpTimeout  = 15 * time.Second
	filehostName      = "filehost-mongo"
)

type (
	// Host stores attachment bytes in GridFS. It satisfies the uploader
	// contract of the knowledge-extraction subsystem.
	Host struct {
		mongo   *mongodriver.Client
		bucket  *mongodriver.GridFSBucket
		baseURL string
		timeout time.Duration
	}

	// Options configures the GridFS host.
	Options struct {
		Client   *mongodriver.Client
		Database string

		// Bucket names the GridFS bucket. Defaults to "attachments".
		Bucket string

		// PublicBaseURL is the externally reachable prefix under which the
		// stored files are served, e.g. "https://files.example.org".
		// Required; the provider fetches uploads by URL.
		PublicBaseURL string

		Timeout time.Duration
	}
)

var _ health.Pinger = (*Host)(nil)

// New returns a GridFS-backed attachment host.
func New(opts Options) (*Host, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	if opts.PublicBaseURL == "" {
		return nil, errors.New("public base url is required")
	}
	bucketName := opts.Bucket
	if bucketName == "" {
		bucketName = defaultBucketName
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	bucket := opts.Client.Database(opts.Database).GridFSBucket(options.GridFSBucket().SetName(bucketName))
	return &Host{
		mongo:   opts.Client,
		bucket:  bucket,
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		timeout: timeout,
	}, nil
}

func (h *Host) Name() string { return filehostName }

func (h *Host) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return h.mongo.Ping(ctx, readpref.Primary())
}

// Upload stores the attachment bytes and returns the public URL under which
// they are served.
func (h *Host) Upload(ctx context.Context, data []byte, name, mediaType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("attachment data is empty")
	}
	if name == "" {
		name = "attachment"
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{"media_type": mediaType})
	id, err := h.bucket.UploadFromStream(ctx, name, bytes.NewReader(data), uploadOpts)
	if err != nil {
		return "", err
	}
	return h.baseURL + "/files/" + id.Hex(), nil
}

// Fetch streams a stored attachment back by its hex object ID. Used by the
// HTTP file endpoint that serves the public URLs.
func (h *Host) Fetch(ctx context.Context, hexID string) ([]byte, error) {
	id, err := bson.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	var buf bytes.Buffer
	if _, err := h.bucket.DownloadToStream(ctx, id, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Host) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if h.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.timeout)
}

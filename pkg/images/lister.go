// Package images lists product image objects from the S3-compatible
// asset store and maps them to public URLs.
package images

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gitlab.connectwisedev.com/catalog-service/pkg/config"
	"gitlab.connectwisedev.com/catalog-service/pkg/e"
)

// ObjectLister is the slice of the minio client the lister needs; tests
// substitute a fake.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// Lister lists object keys under the configured prefix and templates
// them into public URLs. Stateless.
type Lister struct {
	client ObjectLister
	cfg    *config.ImagesConfig
}

// NewLister connects a minio client for the configured endpoint.
func NewLister(cfg *config.ImagesConfig) (*Lister, error) {
	const op = "images.NewLister"

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return &Lister{client: client, cfg: cfg}, nil
}

// NewListerWithClient injects an object lister, used by tests.
func NewListerWithClient(client ObjectLister, cfg *config.ImagesConfig) *Lister {
	return &Lister{client: client, cfg: cfg}
}

// List returns the public URLs of all objects under the prefix. The
// prefix directory marker itself is excluded; an empty listing is a
// not-found outcome.
func (l *Lister) List(ctx context.Context) ([]string, error) {
	const op = "images.List"

	urls := []string{}
	objects := l.client.ListObjects(ctx, l.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    l.cfg.Prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, e.Wrap(op, obj.Err)
		}
		if obj.Key == l.cfg.Prefix || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		urls = append(urls, strings.TrimRight(l.cfg.PublicBaseURL, "/")+"/"+obj.Key)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no images found under %s", e.ErrNotFound, l.cfg.Prefix)
	}
	return urls, nil
}

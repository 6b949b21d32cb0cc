package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
)

// Remote mirrors the snapshot file outside the local filesystem.
type Remote interface {
	// Download copies the remote snapshot to path. found is false if there is none.
	Download(ctx context.Context, path string) (found bool, err error)
	// Upload copies the file at path to the remote.
	Upload(ctx context.Context, path string) error
	// Close releases the remote's resources.
	Close() error
}

// uploadTimeout bounds a single upload
const uploadTimeout = 30 * time.Second

// --------------------------------------------------------------------------
// Google Cloud Storage
// --------------------------------------------------------------------------

// GCSRemote stores the snapshot as one object in a Google Cloud Storage bucket.
// Credentials are taken from the environment (Application Default Credentials).
type GCSRemote struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSRemote creates a GCSRemote for gs://bucket/object.
func NewGCSRemote(ctx context.Context, bucket, object string) (*GCSRemote, error) {
	if bucket == "" || object == "" {
		return nil, errors.New("gcs bucket and object are required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create gcs client")
	}
	return &GCSRemote{client: client, bucket: bucket, object: object}, nil
}

func (g *GCSRemote) String() string {
	return fmt.Sprintf("gs://%s/%s", g.bucket, g.object)
}

func (g *GCSRemote) Download(ctx context.Context, path string) (bool, error) {
	rc, err := g.client.Bucket(g.bucket).Object(g.object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, "open object")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return false, errors.Wrap(err, "read object")
	}
	if err := writeFileAtomic(path, data); err != nil {
		return false, err
	}
	return true, nil
}

func (g *GCSRemote) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open snapshot")
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(g.object).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.Metadata = map[string]string{"source": filepath.Base(path)}
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "upload snapshot")
	}
	return errors.Wrap(w.Close(), "finish upload")
}

func (g *GCSRemote) Close() error {
	return g.client.Close()
}

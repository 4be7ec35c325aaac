package postline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for post and tag persistence. QueryPosts
// is the staged-query capability the pipeline executor runs against;
// FindOrCreateTag must be atomic with respect to concurrent callers so two
// requests referencing the same new name converge on one record.
type Repository interface {
	// Post operations
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	QueryPosts(ctx context.Context, pipeline Pipeline) (*QueryResult, error)

	// Tag operations
	FindTagByName(ctx context.Context, name string) (*Tag, error)
	FindOrCreateTag(ctx context.Context, name string) (*Tag, error)
	ListTags(ctx context.Context) ([]*Tag, error)
}

// BlobStore defines the interface for media storage backends. Upload returns
// a durable URI for the stored object; it is invoked once per attachment and
// must be safe for concurrent use.
type BlobStore interface {
	// Upload stores one binary payload and returns its durable URI
	Upload(ctx context.Context, params UploadParams, reader io.Reader) (string, error)

	// Download retrieves a previously uploaded object
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes an object. Used by operational cleanup of objects
	// orphaned by failed create batches; never called on the request path.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	FileName  string
	MimeType  string
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

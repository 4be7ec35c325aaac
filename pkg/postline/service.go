package postline

import (
	"context"

	"github.com/google/uuid"
)

// Service is the main interface for the post API core.
type Service interface {
	// ListPosts builds and executes the retrieval pipeline for the given
	// query and wraps the result in a response envelope.
	ListPosts(ctx context.Context, req QueryRequest) (*PostPage, error)

	// CreatePost resolves tag names and uploads attachments concurrently,
	// then assembles and persists a new post. Any resolution or upload
	// failure aborts the operation with nothing persisted.
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)

	// GetPost retrieves a single post by identifier.
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)

	// ListTags returns all known tags.
	ListTags(ctx context.Context) ([]*Tag, error)
}

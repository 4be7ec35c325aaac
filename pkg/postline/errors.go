package postline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrPostNotFound indicates a post was not found
	ErrPostNotFound = errors.New("post not found")

	// ErrTagNotFound indicates a tag was not found
	ErrTagNotFound = errors.New("tag not found")

	// ErrMissingTitle indicates a create request without a title
	ErrMissingTitle = errors.New("title is required")

	// ErrMissingDescription indicates a create request without a description
	ErrMissingDescription = errors.New("description is required")

	// ErrMissingMedia indicates a create request without any attachment
	ErrMissingMedia = errors.New("at least one media attachment is required")

	// ErrTooManyAttachments indicates the attachment batch exceeds the configured maximum
	ErrTooManyAttachments = errors.New("media batch exceeds maximum size")

	// ErrUnauthorizedQueryParam indicates a query parameter outside the allow-list
	ErrUnauthorizedQueryParam = errors.New("unauthorized query parameters")

	// ErrInvalidPagination indicates a page or limit value that is not a positive integer
	ErrInvalidPagination = errors.New("page and limit must be positive integers")
)

// TagError represents a failure while resolving a tag name to an identifier.
// Any TagError aborts the whole create operation.
type TagError struct {
	Name string
	Op   string
	Err  error
}

func (e *TagError) Error() string {
	return fmt.Sprintf("tag operation %s failed for name %q: %v", e.Op, e.Name, e.Err)
}

func (e *TagError) Unwrap() error {
	return e.Err
}

// UploadError represents a failed attachment upload within a batch. Index
// and FileName identify the first failing item; the batch is all-or-nothing.
type UploadError struct {
	Index    int
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for attachment %d (%s): %v", e.Index, e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StorageError represents a query-execution failure in the repository.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PostError represents a failure persisting or loading a post.
type PostError struct {
	PostID uuid.UUID
	Op     string
	Err    error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post operation %s failed for post %s: %v", e.Op, e.PostID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

package postline

import (
	"time"

	"github.com/google/uuid"
)

// Post is the persisted form of a post. Media URIs keep the order in which
// the attachments were submitted; tags are stored as identifiers, never
// names. Posts are immutable once created.
type Post struct {
	ID        uuid.UUID   `json:"id"`
	Title     string      `json:"title"`
	Desc      string      `json:"desc"`
	Image     []string    `json:"image"`
	Tags      []uuid.UUID `json:"tags"`
	CreatedAt time.Time   `json:"created_at"`
}

// Tag is a named label referenced by posts. Name is unique across the
// collection; tags are created lazily on first reference.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PostView is the projected result shape for queries: tag identifiers are
// resolved into names and internal fields are dropped.
type PostView struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Desc  string    `json:"desc"`
	Image []string  `json:"image"`
	Tags  []string  `json:"tags"`
}

// QueryResult is the materialized output of a pipeline execution.
// TotalMatches counts every post satisfying the filter stages, independent
// of any pagination stage, and is what the response envelope reports as
// totalElements.
type QueryResult struct {
	Items        []PostView
	TotalMatches int
}

// PostPage is the response envelope for a post listing. Page and Limit echo
// the requested pagination (or the display defaults 1/10 when no pagination
// stage ran); TotalElements is the filtered match count, not the page
// length.
type PostPage struct {
	Items         []PostView
	Page          int
	Limit         int
	TotalElements int
}

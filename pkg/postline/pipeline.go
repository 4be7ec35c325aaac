package postline

import (
	"net/url"
	"strconv"
)

// Allowed query parameter names for post listings. Any other name fails the
// whole request before the repository is touched.
var allowedQueryParams = map[string]struct{}{
	"sort":    {},
	"sortBy":  {},
	"page":    {},
	"limit":   {},
	"keyword": {},
	"tag":     {},
}

// Sort direction value for ascending order; every other value sorts
// descending.
const SortAscending = "asc"

// Post fields a listing may sort by. An unknown sortBy falls back to
// SortFieldCreatedAt rather than failing the request.
const (
	SortFieldTitle     = "title"
	SortFieldDesc      = "desc"
	SortFieldCreatedAt = "createdAt"
)

// QueryRequest carries the validated listing parameters. Zero values mean
// the parameter was absent and the corresponding stage is disabled.
type QueryRequest struct {
	Sort    string
	SortBy  string
	Page    int
	Limit   int
	Keyword string
	Tag     string
}

// ParseQueryRequest validates raw query parameters against the allow-list
// and converts them into a QueryRequest. A parameter name outside the
// allow-list yields ErrUnauthorizedQueryParam; a page or limit that is not a
// positive integer yields ErrInvalidPagination.
func ParseQueryRequest(values url.Values) (QueryRequest, error) {
	var req QueryRequest

	for name := range values {
		if _, ok := allowedQueryParams[name]; !ok {
			return QueryRequest{}, ErrUnauthorizedQueryParam
		}
	}

	req.Sort = values.Get("sort")
	req.SortBy = values.Get("sortBy")
	req.Keyword = values.Get("keyword")
	req.Tag = values.Get("tag")

	if v := values.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return QueryRequest{}, ErrInvalidPagination
		}
		req.Page = page
	}
	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return QueryRequest{}, ErrInvalidPagination
		}
		req.Limit = limit
	}

	return req, nil
}

// Stage is one operation in an ordered retrieval pipeline. The set of
// implementations is closed so executors can handle every kind exhaustively.
type Stage interface {
	isStage()
}

// MatchKeywordStage keeps posts whose title or description contains the
// keyword, case-insensitive.
type MatchKeywordStage struct {
	Keyword string
}

// JoinTagsStage resolves each post's tag identifiers into tag names. Always
// present, and always ahead of any MatchTagStage.
type JoinTagsStage struct{}

// MatchTagStage keeps posts whose joined tag-name set contains Name exactly.
type MatchTagStage struct {
	Name string
}

// SortStage orders posts by a projected field.
type SortStage struct {
	Field      string
	Descending bool
}

// PaginateStage skips Skip posts and takes Limit. Executors must compute
// the total match count from the set this stage receives, not the slice it
// emits.
type PaginateStage struct {
	Skip  int
	Limit int
}

// ProjectStage converts posts into their result projection. Always the
// final stage.
type ProjectStage struct{}

func (MatchKeywordStage) isStage() {}
func (JoinTagsStage) isStage()     {}
func (MatchTagStage) isStage()     {}
func (SortStage) isStage()         {}
func (PaginateStage) isStage()     {}
func (ProjectStage) isStage()      {}

// Pipeline is an ordered stage sequence produced by BuildPipeline.
type Pipeline []Stage

// BuildPipeline deterministically translates a validated QueryRequest into
// an ordered stage sequence. All filter stages run before pagination, and
// the tag join runs before the tag-name filter that depends on it. With no
// parameters at all the result is the identity pipeline: join plus
// projection over the full collection.
func BuildPipeline(req QueryRequest) Pipeline {
	pipeline := make(Pipeline, 0, 6)

	if req.Keyword != "" {
		pipeline = append(pipeline, MatchKeywordStage{Keyword: req.Keyword})
	}

	pipeline = append(pipeline, JoinTagsStage{})

	if req.Tag != "" {
		pipeline = append(pipeline, MatchTagStage{Name: req.Tag})
	}

	if req.Sort != "" && req.SortBy != "" {
		pipeline = append(pipeline, SortStage{
			Field:      normalizeSortField(req.SortBy),
			Descending: req.Sort != SortAscending,
		})
	}

	// Pagination runs only when both halves were supplied; a lone page or
	// limit disables the stage instead of guessing a default.
	if req.Page > 0 && req.Limit > 0 {
		pipeline = append(pipeline, PaginateStage{
			Skip:  (req.Page - 1) * req.Limit,
			Limit: req.Limit,
		})
	}

	pipeline = append(pipeline, ProjectStage{})

	return pipeline
}

func normalizeSortField(field string) string {
	switch field {
	case SortFieldTitle, SortFieldDesc, SortFieldCreatedAt:
		return field
	default:
		return SortFieldCreatedAt
	}
}

package postline_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline/postline/pkg/postline"
)

func TestParseQueryRequest(t *testing.T) {
	tests := []struct {
		name      string
		rawQuery  string
		expectErr error
		expect    postline.QueryRequest
	}{
		{
			name:     "empty query",
			rawQuery: "",
			expect:   postline.QueryRequest{},
		},
		{
			name:     "all allowed parameters",
			rawQuery: "sort=asc&sortBy=title&page=2&limit=5&keyword=go&tag=news",
			expect: postline.QueryRequest{
				Sort: "asc", SortBy: "title", Page: 2, Limit: 5, Keyword: "go", Tag: "news",
			},
		},
		{
			name:      "unauthorized parameter",
			rawQuery:  "keyword=go&order=asc",
			expectErr: postline.ErrUnauthorizedQueryParam,
		},
		{
			name:      "unauthorized parameter alone",
			rawQuery:  "foo=bar",
			expectErr: postline.ErrUnauthorizedQueryParam,
		},
		{
			name:      "non-numeric page",
			rawQuery:  "page=abc&limit=10",
			expectErr: postline.ErrInvalidPagination,
		},
		{
			name:      "zero limit",
			rawQuery:  "page=1&limit=0",
			expectErr: postline.ErrInvalidPagination,
		},
		{
			name:      "negative page",
			rawQuery:  "page=-1&limit=10",
			expectErr: postline.ErrInvalidPagination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.rawQuery)
			require.NoError(t, err)

			req, err := postline.ParseQueryRequest(values)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, req)
		})
	}
}

func TestBuildPipeline(t *testing.T) {
	tests := []struct {
		name   string
		req    postline.QueryRequest
		expect postline.Pipeline
	}{
		{
			name: "no parameters builds identity pipeline",
			req:  postline.QueryRequest{},
			expect: postline.Pipeline{
				postline.JoinTagsStage{},
				postline.ProjectStage{},
			},
		},
		{
			name: "all stages in required order",
			req: postline.QueryRequest{
				Sort: "asc", SortBy: "title", Page: 3, Limit: 10, Keyword: "go", Tag: "news",
			},
			expect: postline.Pipeline{
				postline.MatchKeywordStage{Keyword: "go"},
				postline.JoinTagsStage{},
				postline.MatchTagStage{Name: "news"},
				postline.SortStage{Field: postline.SortFieldTitle, Descending: false},
				postline.PaginateStage{Skip: 20, Limit: 10},
				postline.ProjectStage{},
			},
		},
		{
			name: "page without limit skips pagination",
			req:  postline.QueryRequest{Page: 2},
			expect: postline.Pipeline{
				postline.JoinTagsStage{},
				postline.ProjectStage{},
			},
		},
		{
			name: "limit without page skips pagination",
			req:  postline.QueryRequest{Limit: 10},
			expect: postline.Pipeline{
				postline.JoinTagsStage{},
				postline.ProjectStage{},
			},
		},
		{
			name: "sortBy without sort skips sorting",
			req:  postline.QueryRequest{SortBy: "title"},
			expect: postline.Pipeline{
				postline.JoinTagsStage{},
				postline.ProjectStage{},
			},
		},
		{
			name: "non-asc direction sorts descending",
			req:  postline.QueryRequest{Sort: "anything", SortBy: "desc"},
			expect: postline.Pipeline{
				postline.JoinTagsStage{},
				postline.SortStage{Field: postline.SortFieldDesc, Descending: true},
				postline.ProjectStage{},
			},
		},
		{
			name: "unknown sort field falls back to createdAt",
			req:  postline.QueryRequest{Sort: "asc", SortBy: "popularity"},
			expect: postline.Pipeline{
				postline.JoinTagsStage{},
				postline.SortStage{Field: postline.SortFieldCreatedAt, Descending: false},
				postline.ProjectStage{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, postline.BuildPipeline(tt.req))
		})
	}
}

// Filters must sit ahead of pagination regardless of parameter combination,
// and the join ahead of the tag filter.
func TestBuildPipelineStageOrdering(t *testing.T) {
	pipeline := postline.BuildPipeline(postline.QueryRequest{
		Keyword: "x", Tag: "y", Page: 1, Limit: 1, Sort: "desc", SortBy: "title",
	})

	indexOf := func(match func(postline.Stage) bool) int {
		for i, stage := range pipeline {
			if match(stage) {
				return i
			}
		}
		return -1
	}

	keyword := indexOf(func(s postline.Stage) bool { _, ok := s.(postline.MatchKeywordStage); return ok })
	join := indexOf(func(s postline.Stage) bool { _, ok := s.(postline.JoinTagsStage); return ok })
	tag := indexOf(func(s postline.Stage) bool { _, ok := s.(postline.MatchTagStage); return ok })
	paginate := indexOf(func(s postline.Stage) bool { _, ok := s.(postline.PaginateStage); return ok })
	project := indexOf(func(s postline.Stage) bool { _, ok := s.(postline.ProjectStage); return ok })

	require.NotEqual(t, -1, keyword)
	require.NotEqual(t, -1, join)
	require.NotEqual(t, -1, tag)
	require.NotEqual(t, -1, paginate)

	assert.Less(t, keyword, paginate, "keyword filter must precede pagination")
	assert.Less(t, tag, paginate, "tag filter must precede pagination")
	assert.Less(t, join, tag, "join must precede the tag filter")
	assert.Equal(t, len(pipeline)-1, project, "projection must be the final stage")
}

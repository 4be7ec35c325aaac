package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline/postline/pkg/postline"
)

func TestCompilePipelineFullQuery(t *testing.T) {
	compiled, err := compilePipeline(postline.Pipeline{
		postline.MatchKeywordStage{Keyword: "go"},
		postline.JoinTagsStage{},
		postline.MatchTagStage{Name: "tutorial"},
		postline.SortStage{Field: postline.SortFieldTitle, Descending: true},
		postline.PaginateStage{Skip: 20, Limit: 10},
		postline.ProjectStage{},
	})
	require.NoError(t, err)

	// Keyword binds once and is referenced in both ILIKE branches.
	assert.Contains(t, compiled.selectSQL, "(p.title ILIKE $1 OR p.description ILIKE $1)")
	assert.Contains(t, compiled.selectSQL, "t.name = $2")
	assert.Contains(t, compiled.selectSQL, "ORDER BY p.title DESC, p.id")
	assert.Contains(t, compiled.selectSQL, "LIMIT $3 OFFSET $4")

	assert.Equal(t, []interface{}{"%go%", "tutorial"}, compiled.filterArgs)
	assert.Equal(t, []interface{}{"%go%", "tutorial", 10, 20}, compiled.selectArgs)

	// The count statement shares the filters but never the page bounds.
	assert.Contains(t, compiled.countSQL, "ILIKE $1")
	assert.Contains(t, compiled.countSQL, "t.name = $2")
	assert.NotContains(t, compiled.countSQL, "LIMIT")
	assert.NotContains(t, compiled.countSQL, "OFFSET")
}

func TestCompilePipelineDefaults(t *testing.T) {
	compiled, err := compilePipeline(postline.Pipeline{
		postline.JoinTagsStage{},
		postline.ProjectStage{},
	})
	require.NoError(t, err)

	assert.Contains(t, compiled.selectSQL, "ORDER BY p.created_at, p.id")
	assert.NotContains(t, compiled.selectSQL, "LIMIT")
	assert.Empty(t, compiled.filterArgs)
	assert.Empty(t, compiled.selectArgs)
	assert.Equal(t, "SELECT count(*) FROM posts p ", compiled.countSQL)
}

func TestCompilePipelineSortDirections(t *testing.T) {
	compiled, err := compilePipeline(postline.Pipeline{
		postline.SortStage{Field: postline.SortFieldCreatedAt},
		postline.ProjectStage{},
	})
	require.NoError(t, err)
	assert.Contains(t, compiled.selectSQL, "ORDER BY p.created_at ASC, p.id")

	_, err = compilePipeline(postline.Pipeline{
		postline.SortStage{Field: "rating"},
		postline.ProjectStage{},
	})
	assert.Error(t, err)
}

func TestCompilePipelineRequiresProjection(t *testing.T) {
	_, err := compilePipeline(postline.Pipeline{
		postline.JoinTagsStage{},
		postline.PaginateStage{Skip: 0, Limit: 10},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "projection")
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postline/postline/pkg/postline"
)

func seedPost(t *testing.T, repo *Repository, title, desc string, tagNames ...string) *postline.Post {
	t.Helper()
	ctx := context.Background()

	tagIDs := make([]uuid.UUID, 0, len(tagNames))
	for _, name := range tagNames {
		tag, err := repo.FindOrCreateTag(ctx, name)
		require.NoError(t, err)
		tagIDs = append(tagIDs, tag.ID)
	}

	post := &postline.Post{
		ID:        uuid.New(),
		Title:     title,
		Desc:      desc,
		Image:     []string{"memory://media/" + title},
		Tags:      tagIDs,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreatePost(ctx, post))
	return post
}

func TestCreateAndGetPost(t *testing.T) {
	ctx := context.Background()
	repo := New()

	post := seedPost(t, repo, "Hello", "World", "greeting")

	got, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, got.Title)
	assert.Equal(t, post.Image, got.Image)
	assert.Equal(t, post.Tags, got.Tags)

	// Returned copies must not alias repository state.
	got.Image[0] = "mutated"
	again, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Image[0])

	_, err = repo.GetPost(ctx, uuid.New())
	assert.ErrorIs(t, err, postline.ErrPostNotFound)
}

func TestCreatePostRejectsUnknownTag(t *testing.T) {
	ctx := context.Background()
	repo := New()

	post := &postline.Post{
		ID:        uuid.New(),
		Title:     "t",
		Desc:      "d",
		Image:     []string{"memory://x"},
		Tags:      []uuid.UUID{uuid.New()},
		CreatedAt: time.Now().UTC(),
	}
	err := repo.CreatePost(ctx, post)
	assert.ErrorIs(t, err, postline.ErrTagNotFound)
}

func TestFindOrCreateTag(t *testing.T) {
	ctx := context.Background()
	repo := New()

	first, err := repo.FindOrCreateTag(ctx, "news")
	require.NoError(t, err)

	second, err := repo.FindOrCreateTag(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := repo.FindTagByName(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.FindTagByName(ctx, "missing")
	assert.ErrorIs(t, err, postline.ErrTagNotFound)

	_, err = repo.FindOrCreateTag(ctx, "")
	assert.Error(t, err)
}

func TestFindOrCreateTagConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := New()

	const workers = 16
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag, err := repo.FindOrCreateTag(ctx, "racy")
			if err == nil {
				ids[i] = tag.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestQueryPostsIdentityPipeline(t *testing.T) {
	ctx := context.Background()
	repo := New()

	seedPost(t, repo, "first", "d")
	seedPost(t, repo, "second", "d")
	seedPost(t, repo, "third", "d")

	result, err := repo.QueryPosts(ctx, postline.Pipeline{
		postline.JoinTagsStage{},
		postline.ProjectStage{},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, 3, result.TotalMatches)

	// Default ordering is insertion order.
	assert.Equal(t, "first", result.Items[0].Title)
	assert.Equal(t, "second", result.Items[1].Title)
	assert.Equal(t, "third", result.Items[2].Title)
}

func TestQueryPostsFiltersAndCount(t *testing.T) {
	ctx := context.Background()
	repo := New()

	for i := 0; i < 7; i++ {
		seedPost(t, repo, fmt.Sprintf("keep-%d", i), "d", "wanted")
	}
	for i := 0; i < 5; i++ {
		seedPost(t, repo, fmt.Sprintf("skip-%d", i), "d", "other")
	}

	result, err := repo.QueryPosts(ctx, postline.Pipeline{
		postline.MatchKeywordStage{Keyword: "KEEP"},
		postline.JoinTagsStage{},
		postline.MatchTagStage{Name: "wanted"},
		postline.PaginateStage{Skip: 5, Limit: 5},
		postline.ProjectStage{},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 7, result.TotalMatches, "count reflects the filtered set, not the page")
	assert.Equal(t, "keep-5", result.Items[0].Title)
}

func TestQueryPostsPaginationBeyondRange(t *testing.T) {
	ctx := context.Background()
	repo := New()

	seedPost(t, repo, "only", "d")

	result, err := repo.QueryPosts(ctx, postline.Pipeline{
		postline.JoinTagsStage{},
		postline.PaginateStage{Skip: 10, Limit: 10},
		postline.ProjectStage{},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 1, result.TotalMatches)
}

func TestQueryPostsSorting(t *testing.T) {
	ctx := context.Background()
	repo := New()

	seedPost(t, repo, "banana", "bb")
	seedPost(t, repo, "apple", "aa")
	seedPost(t, repo, "cherry", "cc")

	result, err := repo.QueryPosts(ctx, postline.Pipeline{
		postline.JoinTagsStage{},
		postline.SortStage{Field: postline.SortFieldTitle, Descending: true},
		postline.ProjectStage{},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "cherry", result.Items[0].Title)
	assert.Equal(t, "banana", result.Items[1].Title)
	assert.Equal(t, "apple", result.Items[2].Title)
}

func TestQueryPostsMalformedPipelines(t *testing.T) {
	ctx := context.Background()
	repo := New()
	seedPost(t, repo, "p", "d", "x")

	// Tag filter without a preceding join.
	_, err := repo.QueryPosts(ctx, postline.Pipeline{
		postline.MatchTagStage{Name: "x"},
		postline.ProjectStage{},
	})
	assert.Error(t, err)

	// Missing projection.
	_, err = repo.QueryPosts(ctx, postline.Pipeline{
		postline.JoinTagsStage{},
	})
	assert.Error(t, err)
}

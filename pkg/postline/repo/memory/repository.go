package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postline/postline/pkg/postline"
)

// Repository implements postline.Repository using in-memory storage. The
// stage pipeline is interpreted directly over the stored posts.
type Repository struct {
	mu         sync.RWMutex
	posts      map[uuid.UUID]*postline.Post
	postOrder  []uuid.UUID // insertion order, the default result ordering
	tags       map[uuid.UUID]*postline.Tag
	tagsByName map[string]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		posts:      make(map[uuid.UUID]*postline.Post),
		tags:       make(map[uuid.UUID]*postline.Tag),
		tagsByName: make(map[string]uuid.UUID),
	}
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *postline.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("post %s already exists", post.ID)
	}

	// Every tag reference must exist at persistence time.
	for _, tagID := range post.Tags {
		if _, exists := r.tags[tagID]; !exists {
			return fmt.Errorf("tag %s referenced by post %s: %w", tagID, post.ID, postline.ErrTagNotFound)
		}
	}

	// Copy to avoid external modifications
	postCopy := *post
	postCopy.Image = append([]string(nil), post.Image...)
	postCopy.Tags = append([]uuid.UUID(nil), post.Tags...)

	r.posts[post.ID] = &postCopy
	r.postOrder = append(r.postOrder, post.ID)

	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*postline.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, postline.ErrPostNotFound
	}

	postCopy := *post
	postCopy.Image = append([]string(nil), post.Image...)
	postCopy.Tags = append([]uuid.UUID(nil), post.Tags...)
	return &postCopy, nil
}

// Tag operations

func (r *Repository) FindTagByName(ctx context.Context, name string) (*postline.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.tagsByName[name]
	if !exists {
		return nil, postline.ErrTagNotFound
	}

	tagCopy := *r.tags[id]
	return &tagCopy, nil
}

// FindOrCreateTag holds the write lock across lookup and creation, so
// concurrent callers racing on the same new name converge on one record.
func (r *Repository) FindOrCreateTag(ctx context.Context, name string) (*postline.Tag, error) {
	if name == "" {
		return nil, fmt.Errorf("tag name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.tagsByName[name]; exists {
		tagCopy := *r.tags[id]
		return &tagCopy, nil
	}

	tag := &postline.Tag{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	r.tags[tag.ID] = tag
	r.tagsByName[name] = tag.ID

	tagCopy := *tag
	return &tagCopy, nil
}

func (r *Repository) ListTags(ctx context.Context) ([]*postline.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*postline.Tag, 0, len(r.tags))
	for _, tag := range r.tags {
		tagCopy := *tag
		result = append(result, &tagCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// Pipeline execution

// row is the executor's working shape: a post plus its joined tag names.
type row struct {
	post     *postline.Post
	tagNames []string
	joined   bool
}

// QueryPosts interprets the stage sequence over the stored posts in
// insertion order and returns the projected page together with the count of
// posts matching all filter stages.
func (r *Repository) QueryPosts(ctx context.Context, pipeline postline.Pipeline) (*postline.QueryResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]row, 0, len(r.postOrder))
	for _, id := range r.postOrder {
		rows = append(rows, row{post: r.posts[id]})
	}

	totalMatches := -1

	for _, stage := range pipeline {
		switch s := stage.(type) {
		case postline.MatchKeywordStage:
			keyword := strings.ToLower(s.Keyword)
			kept := rows[:0]
			for _, rw := range rows {
				if strings.Contains(strings.ToLower(rw.post.Title), keyword) ||
					strings.Contains(strings.ToLower(rw.post.Desc), keyword) {
					kept = append(kept, rw)
				}
			}
			rows = kept

		case postline.JoinTagsStage:
			for i := range rows {
				names := make([]string, 0, len(rows[i].post.Tags))
				for _, tagID := range rows[i].post.Tags {
					if tag, exists := r.tags[tagID]; exists {
						names = append(names, tag.Name)
					}
				}
				rows[i].tagNames = names
				rows[i].joined = true
			}

		case postline.MatchTagStage:
			kept := rows[:0]
			for _, rw := range rows {
				if !rw.joined {
					return nil, fmt.Errorf("tag filter requires a preceding join stage")
				}
				for _, name := range rw.tagNames {
					if name == s.Name {
						kept = append(kept, rw)
						break
					}
				}
			}
			rows = kept

		case postline.SortStage:
			sortRows(rows, s)

		case postline.PaginateStage:
			// The filtered count is fixed here, before slicing.
			totalMatches = len(rows)
			if s.Skip >= len(rows) {
				rows = rows[:0]
			} else {
				rows = rows[s.Skip:]
				if s.Limit < len(rows) {
					rows = rows[:s.Limit]
				}
			}

		case postline.ProjectStage:
			if totalMatches < 0 {
				totalMatches = len(rows)
			}
			items := make([]postline.PostView, 0, len(rows))
			for _, rw := range rows {
				items = append(items, postline.PostView{
					ID:    rw.post.ID,
					Title: rw.post.Title,
					Desc:  rw.post.Desc,
					Image: append([]string(nil), rw.post.Image...),
					Tags:  rw.tagNames,
				})
			}
			return &postline.QueryResult{Items: items, TotalMatches: totalMatches}, nil

		default:
			return nil, fmt.Errorf("unknown pipeline stage %T", stage)
		}
	}

	return nil, fmt.Errorf("pipeline has no projection stage")
}

func sortRows(rows []row, s postline.SortStage) {
	less := func(a, b *postline.Post) bool {
		switch s.Field {
		case postline.SortFieldTitle:
			return a.Title < b.Title
		case postline.SortFieldDesc:
			return a.Desc < b.Desc
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if s.Descending {
			return less(rows[j].post, rows[i].post)
		}
		return less(rows[i].post, rows[j].post)
	})
}

package postline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/postline/postline/pkg/postline/objectkey"
)

// DefaultMaxAttachments caps the media batch size of a single create
// request.
const DefaultMaxAttachments = 10

// Display defaults reported in the listing envelope when the request
// carried no pagination. They never influence pipeline execution.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// service implements the Service interface
type service struct {
	repository     Repository
	blobStore      BlobStore
	keys           objectkey.Generator
	maxAttachments int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the media storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithObjectKeyGenerator sets the key strategy for uploaded media
func WithObjectKeyGenerator(g objectkey.Generator) Option {
	return func(s *service) {
		s.keys = g
	}
}

// WithMaxAttachments overrides the maximum media batch size
func WithMaxAttachments(n int) Option {
	return func(s *service) {
		s.maxAttachments = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keys:           objectkey.NewShardedGenerator(),
		maxAttachments: DefaultMaxAttachments,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.maxAttachments < 1 {
		return nil, fmt.Errorf("max attachments must be at least 1")
	}

	return s, nil
}

func (s *service) ListPosts(ctx context.Context, req QueryRequest) (*PostPage, error) {
	pipeline := BuildPipeline(req)

	result, err := s.repository.QueryPosts(ctx, pipeline)
	if err != nil {
		return nil, &StorageError{Op: "query_posts", Err: err}
	}

	page := &PostPage{
		Items:         result.Items,
		Page:          req.Page,
		Limit:         req.Limit,
		TotalElements: result.TotalMatches,
	}
	if page.Page == 0 {
		page.Page = DefaultPage
	}
	if page.Limit == 0 {
		page.Limit = DefaultLimit
	}
	if page.Items == nil {
		page.Items = []PostView{}
	}

	return page, nil
}

func (s *service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if req.Title == "" {
		return nil, ErrMissingTitle
	}
	if req.Desc == "" {
		return nil, ErrMissingDescription
	}
	if len(req.Attachments) == 0 {
		return nil, ErrMissingMedia
	}
	if len(req.Attachments) > s.maxAttachments {
		return nil, fmt.Errorf("%w: %d attachments, maximum is %d",
			ErrTooManyAttachments, len(req.Attachments), s.maxAttachments)
	}

	// Tag resolution and media upload are independent; run them
	// concurrently and join on both before assembling.
	type tagResult struct {
		ids []uuid.UUID
		err error
	}
	tagCh := make(chan tagResult, 1)
	go func() {
		ids, err := s.resolveTags(ctx, req.Tags)
		tagCh <- tagResult{ids: ids, err: err}
	}()

	uris, uploadErr := s.uploadAttachments(ctx, req.Attachments)
	tags := <-tagCh

	if tags.err != nil {
		return nil, tags.err
	}
	if uploadErr != nil {
		return nil, uploadErr
	}

	post := &Post{
		ID:        uuid.New(),
		Title:     req.Title,
		Desc:      req.Desc,
		Image:     uris,
		Tags:      tags.ids,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repository.CreatePost(ctx, post); err != nil {
		return nil, &PostError{
			PostID: post.ID,
			Op:     "persist",
			Err:    err,
		}
	}

	return post, nil
}

func (s *service) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	return s.repository.GetPost(ctx, id)
}

func (s *service) ListTags(ctx context.Context) ([]*Tag, error) {
	tags, err := s.repository.ListTags(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list_tags", Err: err}
	}
	return tags, nil
}

// resolveTags maps tag names to identifiers in input order, creating missing
// tags through the repository's atomic find-or-create. Duplicate names are
// memoized so one name never yields two identifiers within a call.
func (s *service) resolveTags(ctx context.Context, names []string) ([]uuid.UUID, error) {
	if len(names) == 0 {
		return []uuid.UUID{}, nil
	}

	ids := make([]uuid.UUID, 0, len(names))
	seen := make(map[string]uuid.UUID, len(names))

	for _, name := range names {
		if id, ok := seen[name]; ok {
			ids = append(ids, id)
			continue
		}

		tag, err := s.repository.FindOrCreateTag(ctx, name)
		if err != nil {
			return nil, &TagError{Name: name, Op: "resolve", Err: err}
		}

		seen[name] = tag.ID
		ids = append(ids, tag.ID)
	}

	return ids, nil
}

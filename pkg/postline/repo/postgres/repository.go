package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postline/postline/pkg/postline"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// txBeginner is satisfied by pools, connections and transactions; when the
// underlying DBTX supports it, CreatePost wraps its inserts in a transaction.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements postline.Repository using PostgreSQL. See
// migrations/0001_init.sql for the schema it expects.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *postline.Post) error {
	beginner, ok := r.db.(txBeginner)
	if !ok {
		// Already inside a transaction (or a bare connection in tests).
		return r.createPost(ctx, r.db, post)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("create post", err)
	}
	defer tx.Rollback(ctx)

	if err := r.createPost(ctx, tx, post); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("create post", err)
	}
	return nil
}

func (r *Repository) createPost(ctx context.Context, db DBTX, post *postline.Post) error {
	_, err := db.Exec(ctx,
		`INSERT INTO posts (id, title, description, created_at) VALUES ($1, $2, $3, $4)`,
		post.ID, post.Title, post.Desc, post.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create post", err)
	}

	for i, uri := range post.Image {
		_, err := db.Exec(ctx,
			`INSERT INTO post_media (post_id, position, uri) VALUES ($1, $2, $3)`,
			post.ID, i, uri)
		if err != nil {
			return r.handlePostgresError("create post media", err)
		}
	}

	for i, tagID := range post.Tags {
		_, err := db.Exec(ctx,
			`INSERT INTO post_tags (post_id, position, tag_id) VALUES ($1, $2, $3)`,
			post.ID, i, tagID)
		if err != nil {
			return r.handlePostgresError("create post tags", err)
		}
	}

	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*postline.Post, error) {
	query := `
        SELECT p.id, p.title, p.description, p.created_at,
               COALESCE((SELECT array_agg(m.uri ORDER BY m.position)
                         FROM post_media m WHERE m.post_id = p.id), '{}'),
               COALESCE((SELECT array_agg(pt.tag_id::text ORDER BY pt.position)
                         FROM post_tags pt WHERE pt.post_id = p.id), '{}')
        FROM posts p WHERE p.id = $1`

	var post postline.Post
	var tagIDs []string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&post.ID, &post.Title, &post.Desc, &post.CreatedAt, &post.Image, &tagIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postline.ErrPostNotFound
		}
		return nil, r.handlePostgresError("get post", err)
	}

	post.Tags = make([]uuid.UUID, 0, len(tagIDs))
	for _, raw := range tagIDs {
		tagID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid tag id %q on post %s: %w", raw, id, err)
		}
		post.Tags = append(post.Tags, tagID)
	}

	return &post, nil
}

// Tag operations

func (r *Repository) FindTagByName(ctx context.Context, name string) (*postline.Tag, error) {
	var tag postline.Tag
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = $1`, name).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postline.ErrTagNotFound
		}
		return nil, r.handlePostgresError("find tag", err)
	}
	return &tag, nil
}

// FindOrCreateTag is a conditional insert against the unique index on
// tags.name, so concurrent requests racing on a new name converge on one
// record. The no-op DO UPDATE makes RETURNING yield the surviving row.
func (r *Repository) FindOrCreateTag(ctx context.Context, name string) (*postline.Tag, error) {
	if name == "" {
		return nil, fmt.Errorf("tag name must not be empty")
	}

	query := `
        INSERT INTO tags (id, name, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name, created_at`

	var tag postline.Tag
	err := r.db.QueryRow(ctx, query, uuid.New(), name, time.Now().UTC()).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, r.handlePostgresError("find or create tag", err)
	}
	return &tag, nil
}

func (r *Repository) ListTags(ctx context.Context) ([]*postline.Tag, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, r.handlePostgresError("list tags", err)
	}
	defer rows.Close()

	var result []*postline.Tag
	for rows.Next() {
		var tag postline.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, r.handlePostgresError("list tags", err)
		}
		result = append(result, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list tags", err)
	}

	return result, nil
}

// Pipeline execution

// QueryPosts compiles the stage sequence into SQL and runs it, plus a
// separate count over the same filters for the total-match figure.
func (r *Repository) QueryPosts(ctx context.Context, pipeline postline.Pipeline) (*postline.QueryResult, error) {
	compiled, err := compilePipeline(pipeline)
	if err != nil {
		return nil, err
	}

	var total int
	if err := r.db.QueryRow(ctx, compiled.countSQL, compiled.filterArgs...).Scan(&total); err != nil {
		return nil, r.handlePostgresError("count posts", err)
	}

	rows, err := r.db.Query(ctx, compiled.selectSQL, compiled.selectArgs...)
	if err != nil {
		return nil, r.handlePostgresError("query posts", err)
	}
	defer rows.Close()

	items := []postline.PostView{}
	for rows.Next() {
		var view postline.PostView
		if err := rows.Scan(&view.ID, &view.Title, &view.Desc, &view.Image, &view.Tags); err != nil {
			return nil, r.handlePostgresError("query posts", err)
		}
		if view.Tags == nil {
			view.Tags = []string{}
		}
		items = append(items, view)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("query posts", err)
	}

	return &postline.QueryResult{Items: items, TotalMatches: total}, nil
}

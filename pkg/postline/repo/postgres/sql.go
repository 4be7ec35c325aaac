package postgres

import (
	"fmt"
	"strings"

	"github.com/postline/postline/pkg/postline"
)

// compiledQuery holds the SQL produced from a pipeline. filterArgs bind the
// count statement; selectArgs extend them with pagination values.
type compiledQuery struct {
	selectSQL  string
	countSQL   string
	selectArgs []interface{}
	filterArgs []interface{}
}

// sortColumns whitelists the ORDER BY targets; the pipeline builder already
// normalizes unknown fields, so a miss here is a programming error.
var sortColumns = map[string]string{
	postline.SortFieldTitle:     "p.title",
	postline.SortFieldDesc:      "p.description",
	postline.SortFieldCreatedAt: "p.created_at",
}

// compilePipeline walks the closed stage set and emits one SELECT for the
// page and one COUNT over the same filters. The tag join is realized by the
// projection subqueries, so JoinTagsStage itself adds no SQL; ordering
// guarantees (filters before pagination, join before tag filter) are
// inherent in how the statement is assembled.
func compilePipeline(pipeline postline.Pipeline) (*compiledQuery, error) {
	var (
		where     []string
		args      []interface{}
		orderBy   string
		projected bool
		paginate  *postline.PaginateStage
	)

	for _, stage := range pipeline {
		switch s := stage.(type) {
		case postline.MatchKeywordStage:
			args = append(args, "%"+s.Keyword+"%")
			n := len(args)
			where = append(where, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", n, n))

		case postline.JoinTagsStage:
			// Tag names are always joined in the projection.

		case postline.MatchTagStage:
			args = append(args, s.Name)
			where = append(where, fmt.Sprintf(
				`EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
                         WHERE pt.post_id = p.id AND t.name = $%d)`, len(args)))

		case postline.SortStage:
			column, ok := sortColumns[s.Field]
			if !ok {
				return nil, fmt.Errorf("unsortable field %q", s.Field)
			}
			direction := "ASC"
			if s.Descending {
				direction = "DESC"
			}
			orderBy = fmt.Sprintf("ORDER BY %s %s, p.id", column, direction)

		case postline.PaginateStage:
			stageCopy := s
			paginate = &stageCopy

		case postline.ProjectStage:
			projected = true

		default:
			return nil, fmt.Errorf("unknown pipeline stage %T", stage)
		}
	}

	if !projected {
		return nil, fmt.Errorf("pipeline has no projection stage")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}
	if orderBy == "" {
		// Unsorted results fall back to insertion order.
		orderBy = "ORDER BY p.created_at, p.id"
	}

	filterArgs := args
	selectArgs := append([]interface{}{}, filterArgs...)

	pageSQL := ""
	if paginate != nil {
		selectArgs = append(selectArgs, paginate.Limit, paginate.Skip)
		pageSQL = fmt.Sprintf("LIMIT $%d OFFSET $%d", len(selectArgs)-1, len(selectArgs))
	}

	selectSQL := fmt.Sprintf(`
        SELECT p.id, p.title, p.description,
               COALESCE((SELECT array_agg(m.uri ORDER BY m.position)
                         FROM post_media m WHERE m.post_id = p.id), '{}'),
               COALESCE((SELECT array_agg(t.name ORDER BY pt.position)
                         FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
                         WHERE pt.post_id = p.id), '{}')
        FROM posts p %s %s %s`, whereSQL, orderBy, pageSQL)

	countSQL := fmt.Sprintf(`SELECT count(*) FROM posts p %s`, whereSQL)

	return &compiledQuery{
		selectSQL:  selectSQL,
		countSQL:   countSQL,
		selectArgs: selectArgs,
		filterArgs: filterArgs,
	}, nil
}

package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/eduadmin/apiserver/types"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

const studentListFrom = "users u"
const studentListJoin = "user_profiles p ON p.user_id = u.id"

// StudentQuery composes the count and page queries of a student listing
// from one shared predicate.
type StudentQuery struct {
	sb     squirrel.StatementBuilderType
	pred   squirrel.And
	page   int
	limit  int
	offset int
}

// NewStudentQuery validates the pagination of filter and assembles the
// predicate. The role clause always comes first; optional clauses follow in
// a fixed order (search, name, class, section, roll) so that statement text
// and arguments stay index-aligned.
func NewStudentQuery(roleID int, filter types.StudentFilter) (StudentQuery, error) {
	page, limit, err := NormalizePagination(filter.Page, filter.Limit)
	if err != nil {
		return StudentQuery{}, err
	}

	pred := squirrel.And{squirrel.Eq{"u.role_id": roleID}}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		pred = append(pred, squirrel.Or{
			squirrel.ILike{"u.name": pattern},
			squirrel.ILike{"u.email": pattern},
		})
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		pred = append(pred, squirrel.ILike{"u.name": "%" + escapeLike(name) + "%"})
	}
	if className := strings.TrimSpace(filter.ClassName); className != "" {
		pred = append(pred, squirrel.Eq{"p.class_name": className})
	}
	if section := strings.TrimSpace(filter.Section); section != "" {
		pred = append(pred, squirrel.Eq{"p.section_name": section})
	}
	if roll := strings.TrimSpace(filter.Roll); roll != "" {
		pred = append(pred, squirrel.Eq{"p.roll": roll})
	}

	return StudentQuery{
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		pred:   pred,
		page:   page,
		limit:  limit,
		offset: (page - 1) * limit,
	}, nil
}

// Count returns the statement counting every row matching the predicate.
func (q StudentQuery) Count() (string, []any, error) {
	return q.sb.Select("COUNT(*)").
		From(studentListFrom).
		LeftJoin(studentListJoin).
		Where(q.pred).
		ToSql()
}

// Page returns the statement selecting the requested page. Its arguments are
// the Count arguments followed by limit and offset.
func (q StudentQuery) Page() (string, []any, error) {
	return q.sb.Select(
		"u.id",
		"u.name",
		"u.email",
		"u.last_login",
		"u.is_active",
	).
		From(studentListFrom).
		LeftJoin(studentListJoin).
		Where(q.pred).
		OrderBy("u.id").
		Suffix("LIMIT ? OFFSET ?", q.limit, q.offset).
		ToSql()
}

// Pagination describes the page for the given total.
func (q StudentQuery) Pagination(total int) types.Pagination {
	return types.Pagination{
		Page:       q.page,
		Limit:      q.limit,
		Total:      total,
		TotalPages: TotalPages(total, q.limit),
	}
}

func (q StudentQuery) Limit() int  { return q.limit }
func (q StudentQuery) Offset() int { return q.offset }

// NormalizePagination applies defaults to unset (zero) values and caps the
// limit. Negative values are rejected.
func NormalizePagination(page, limit int) (int, int, error) {
	if page < 0 {
		return 0, 0, fmt.Errorf("%w: page must be positive", ErrInvalidPagination)
	}
	if limit < 0 {
		return 0, 0, fmt.Errorf("%w: limit must be positive", ErrInvalidPagination)
	}
	if page == 0 {
		page = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit, nil
}

// TotalPages is ceil(total/limit), 0 when there is nothing to page.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

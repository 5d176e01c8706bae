package catalog

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/cinebase/cache"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Sort fields and directions accepted by MovieQuery.
const (
	SortTitle     = "title"
	SortYear      = "year"
	SortCreatedAt = "created_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// MovieQuery selects one page of movies.
type MovieQuery struct {
	Page     int
	PageSize int
	Genre    string
	Year     *int
	Search   string
	IsCustom *bool
	Sort     string
	Order    string
}

// Normalize applies defaults and clamps paging so equivalent requests
// produce the same query.
func (q MovieQuery) Normalize() MovieQuery {
	q.Page, q.PageSize = normalizePaging(q.Page, q.PageSize)
	q.Genre = strings.TrimSpace(q.Genre)
	q.Search = strings.TrimSpace(q.Search)
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	q.Order = strings.ToLower(strings.TrimSpace(q.Order))
	if q.Sort == "" {
		q.Sort = SortCreatedAt
	}
	if q.Order == "" {
		q.Order = OrderDesc
	}
	return q
}

// Validate checks a normalized query.
func (q MovieQuery) Validate() error {
	return NewValidationError(validation.ValidateStruct(&q,
		validation.Field(&q.Sort, validation.In(SortTitle, SortYear, SortCreatedAt)),
		validation.Field(&q.Order, validation.In(OrderAsc, OrderDesc)),
		validation.Field(&q.Year, validation.Min(MinYear), validation.Max(MaxYear)),
		validation.Field(&q.Genre, validation.Length(0, 50)),
		validation.Field(&q.Search, validation.Length(0, 255)),
	))
}

// CacheParams returns the canonical parameters of the normalized query.
// Genre and title search are case-insensitive, so they are folded.
func (q MovieQuery) CacheParams() cache.Params {
	n := q.Normalize()
	return cache.NewParams(8).
		Add("page", n.Page).
		Add("page_size", n.PageSize).
		AddFold("genre", n.Genre).
		Add("year", n.Year).
		AddFold("q", n.Search).
		Add("is_custom", n.IsCustom).
		Add("sort", n.Sort).
		Add("order", n.Order)
}

// UserQuery selects one page of users.
type UserQuery struct {
	Page     int
	PageSize int
	Role     Role
	Email    string
}

// Normalize applies defaults and clamps paging.
func (q UserQuery) Normalize() UserQuery {
	q.Page, q.PageSize = normalizePaging(q.Page, q.PageSize)
	q.Role = Role(strings.ToLower(strings.TrimSpace(string(q.Role))))
	q.Email = NormalizeEmail(q.Email)
	return q
}

// Validate checks a normalized query.
func (q UserQuery) Validate() error {
	return NewValidationError(validation.ValidateStruct(&q,
		validation.Field(&q.Role, validation.In(RoleUser, RoleAdmin)),
		validation.Field(&q.Email, validation.Length(0, 255)),
	))
}

// CacheParams returns the canonical parameters of the normalized query.
func (q UserQuery) CacheParams() cache.Params {
	n := q.Normalize()
	return cache.NewParams(4).
		Add("page", n.Page).
		Add("page_size", n.PageSize).
		Add("role", string(n.Role)).
		Add("email", n.Email)
}

func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

func (q MovieQuery) offset() int {
	return (q.Page - 1) * q.PageSize
}

func (q UserQuery) offset() int {
	return (q.Page - 1) * q.PageSize
}

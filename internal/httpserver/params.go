package httpserver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/cinebase/internal/catalog"
)

// queryParser collects typed query parameters and reports every malformed
// one at once.
type queryParser struct {
	values url.Values
	errs   map[string]string
}

func newQueryParser(values url.Values) *queryParser {
	return &queryParser{values: values, errs: make(map[string]string)}
}

func (p *queryParser) string(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

func (p *queryParser) int(name string) int {
	if v := p.optInt(name); v != nil {
		return *v
	}
	return 0
}

func (p *queryParser) optInt(name string) *int {
	raw := p.string(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs[name] = "must be an integer"
		return nil
	}
	return &n
}

func (p *queryParser) optBool(name string) *bool {
	raw := p.string(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs[name] = "must be a boolean"
		return nil
	}
	return &b
}

func (p *queryParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return &catalog.ValidationError{Fields: p.errs}
}

func parseMovieQuery(values url.Values) (catalog.MovieQuery, error) {
	p := newQueryParser(values)
	q := catalog.MovieQuery{
		Page:     p.int("page"),
		PageSize: p.int("page_size"),
		Genre:    p.string("genre"),
		Year:     p.optInt("year"),
		Search:   p.string("q"),
		IsCustom: p.optBool("is_custom"),
		Sort:     p.string("sort"),
		Order:    p.string("order"),
	}
	if err := p.err(); err != nil {
		return catalog.MovieQuery{}, err
	}
	q = q.Normalize()
	return q, q.Validate()
}

func parseUserQuery(values url.Values) (catalog.UserQuery, error) {
	p := newQueryParser(values)
	q := catalog.UserQuery{
		Page:     p.int("page"),
		PageSize: p.int("page_size"),
		Role:     catalog.Role(p.string("role")),
		Email:    p.string("email"),
	}
	if err := p.err(); err != nil {
		return catalog.UserQuery{}, err
	}
	q = q.Normalize()
	return q, q.Validate()
}

package cache

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Param is a single normalized query parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered list of normalized (name, value) pairs describing a
// list query. The zero value is an empty parameter set ready to use.
//
// Values are normalized when added, so two Params built from the same logical
// query encode identically regardless of insertion order.
type Params []Param

// NewParams returns an empty parameter set with room for n pairs.
func NewParams(n int) Params {
	return make(Params, 0, n)
}

// Add appends name=value, normalizing both. Empty strings and nil values are
// skipped: an empty filter is the same query as no filter.
func (p Params) Add(name string, value any) Params {
	v, ok := normalizeValue(value)
	if !ok {
		return p
	}
	return append(p, Param{Name: normalizeName(name), Value: v})
}

// AddFold appends a string parameter whose underlying query is case-insensitive.
func (p Params) AddFold(name, value string) Params {
	return p.Add(name, strings.ToLower(strings.TrimSpace(value)))
}

// AddSet appends a set-valued parameter. Order and duplicates do not matter.
func (p Params) AddSet(name string, values []string, fold bool) Params {
	set := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		set = append(set, v)
	}
	if len(set) == 0 {
		return p
	}
	sort.Strings(set)
	return append(p, Param{Name: normalizeName(name), Value: strings.Join(set, ",")})
}

// ParamsFromMap builds Params from a loosely typed mapping.
func ParamsFromMap(m map[string]any) Params {
	p := NewParams(len(m))
	for name, value := range m {
		if values, ok := value.([]string); ok {
			p = p.AddSet(name, values, false)
			continue
		}
		p = p.Add(name, value)
	}
	return p
}

// Encode returns the canonical encoding: pairs sorted by name then value,
// query-escaped and joined with '&'. An empty set encodes as "all".
func (p Params) Encode() string {
	if len(p) == 0 {
		return "all"
	}

	sorted := make(Params, len(p))
	copy(sorted, p)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Value < sorted[j].Value
	})

	var b strings.Builder
	for i, param := range sorted {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(param.Value))
	}
	return b.String()
}

func normalizeName(name string) string {
	if snake := toSnake(strings.TrimSpace(name)); snake != "" {
		return snake
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeValue(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), true
	case fmt.Stringer:
		return normalizeValue(v.String())
	}

	// Pointers to any of the above: nil means "not set".
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "", false
		}
		return normalizeValue(rv.Elem().Interface())
	}

	return normalizeValue(fmt.Sprintf("%v", value))
}

package repositorycache

import "strings"

// InvalidationError describes a committed write whose cache entries could not
// be removed. It is never returned to the writer.
type InvalidationError struct {
	Kind string
	Op   string
	ID   string
	Keys []string
	Err  error
}

func (e *InvalidationError) Error() string {
	var b strings.Builder
	b.WriteString("cache invalidation failed after ")
	b.WriteString(e.Op)
	b.WriteString(" of ")
	b.WriteString(e.Kind)
	if e.ID != "" {
		b.WriteString(" ")
		b.WriteString(e.ID)
	}
	if len(e.Keys) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Keys, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *InvalidationError) Unwrap() error {
	return e.Err
}

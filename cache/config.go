package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// KindTTL holds the time-to-live used when populating entries of one entity kind.
type KindTTL struct {
	// Entity is the TTL for single-entity keys (<kind>:entity:<id>).
	Entity time.Duration `yaml:"entity"`

	// List is the TTL for list query keys (<kind>:list:...). List results
	// change whenever any row of the kind changes, so this is usually shorter.
	List time.Duration `yaml:"list"`
}

// Validate checks that both TTLs are positive.
func (t KindTTL) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Entity, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&t.List, validation.Required, validation.Min(time.Millisecond)),
	)
}

// Policy maps entity kinds to their TTLs.
type Policy struct {
	Kinds   map[string]KindTTL `yaml:"kinds"`
	Default KindTTL            `yaml:"default"`
}

// DefaultPolicy returns the TTLs used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Kinds: map[string]KindTTL{
			"movies": {Entity: 10 * time.Minute, List: 60 * time.Second},
			"users":  {Entity: 5 * time.Minute, List: 30 * time.Second},
		},
		Default: KindTTL{Entity: 5 * time.Minute, List: 30 * time.Second},
	}
}

// For returns the TTLs configured for kind, falling back to Default.
func (p Policy) For(kind string) KindTTL {
	if ttl, ok := p.Kinds[namespace(kind)]; ok {
		return ttl
	}
	return p.Default
}

// MaxTTL returns the largest TTL any kind may use.
func (p Policy) MaxTTL() time.Duration {
	longest := max(p.Default.Entity, p.Default.List)
	for _, ttl := range p.Kinds {
		longest = max(longest, ttl.Entity, ttl.List)
	}
	return longest
}

// Validate checks every configured kind.
func (p Policy) Validate() error {
	if err := p.Default.Validate(); err != nil {
		return validation.Errors{"default": err}
	}
	errs := validation.Errors{}
	for kind, ttl := range p.Kinds {
		if err := ttl.Validate(); err != nil {
			errs[kind] = err
		}
	}
	return errs.Filter()
}

package catalog

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/uptrace/bun"
)

// KindMovies is the cache namespace for movies.
const KindMovies = "movies"

const (
	MinYear = 1888
	MaxYear = 2030
)

// Movie is a catalog entry. Entries either reference a TMDB id or are
// custom entries curated by an admin.
type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:m" json:"-"`

	ID               string    `bun:"id,pk" json:"id"`
	TMDBID           *int      `bun:"tmdb_id" json:"tmdb_id,omitempty"`
	Title            string    `bun:"title,nullzero" json:"title,omitempty"`
	Year             *int      `bun:"year" json:"year,omitempty"`
	Genres           []string  `bun:"genres,type:text" json:"genres"`
	Overview         string    `bun:"overview,nullzero" json:"overview,omitempty"`
	CustomPosterPath string    `bun:"custom_poster_path,nullzero" json:"custom_poster_path,omitempty"`
	CustomTrailerURL string    `bun:"custom_trailer_url,nullzero" json:"custom_trailer_url,omitempty"`
	IsCustom         bool      `bun:"is_custom,notnull" json:"is_custom"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Validate checks field constraints.
func (m Movie) Validate() error {
	return NewValidationError(validation.ValidateStruct(&m,
		validation.Field(&m.TMDBID,
			validation.When(!m.IsCustom, validation.Required.Error("is required unless the movie is custom")),
			validation.Min(1),
		),
		validation.Field(&m.Title,
			validation.When(m.IsCustom, validation.Required),
			validation.Length(1, 255),
		),
		validation.Field(&m.Year, validation.Min(MinYear), validation.Max(MaxYear)),
		validation.Field(&m.Genres, validation.Each(validation.Required, validation.Length(1, 50))),
		validation.Field(&m.CustomPosterPath, validation.Length(0, 500)),
		validation.Field(&m.CustomTrailerURL, validation.Length(0, 500), is.URL),
	))
}

// HasGenre reports whether the movie is tagged with genre, ignoring case.
func (m Movie) HasGenre(genre string) bool {
	genre = strings.TrimSpace(genre)
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// normalize trims text fields and de-duplicates genres, keeping first spelling.
func (m *Movie) normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Overview = strings.TrimSpace(m.Overview)
	m.CustomPosterPath = strings.TrimSpace(m.CustomPosterPath)
	m.CustomTrailerURL = strings.TrimSpace(m.CustomTrailerURL)

	genres := make([]string, 0, len(m.Genres))
	seen := make(map[string]struct{}, len(m.Genres))
	for _, g := range m.Genres {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		genres = append(genres, g)
	}
	m.Genres = genres
}

// MoviePatch is a partial update. Nil fields are left unchanged.
type MoviePatch struct {
	TMDBID           *int      `json:"tmdb_id"`
	Title            *string   `json:"title"`
	Year             *int      `json:"year"`
	Genres           *[]string `json:"genres"`
	Overview         *string   `json:"overview"`
	CustomPosterPath *string   `json:"custom_poster_path"`
	CustomTrailerURL *string   `json:"custom_trailer_url"`
	IsCustom         *bool     `json:"is_custom"`
}

// Apply returns m with the patch applied.
func (p MoviePatch) Apply(m Movie) (Movie, error) {
	if p.TMDBID != nil {
		m.TMDBID = p.TMDBID
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Year != nil {
		m.Year = p.Year
	}
	if p.Genres != nil {
		m.Genres = append([]string(nil), (*p.Genres)...)
	}
	if p.Overview != nil {
		m.Overview = *p.Overview
	}
	if p.CustomPosterPath != nil {
		m.CustomPosterPath = *p.CustomPosterPath
	}
	if p.CustomTrailerURL != nil {
		m.CustomTrailerURL = *p.CustomTrailerURL
	}
	if p.IsCustom != nil {
		m.IsCustom = *p.IsCustom
	}
	return m, nil
}

package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/goliatone/cinebase/repositorycache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var _ repositorycache.Repository[Movie, MovieQuery] = (*MovieRepository)(nil)

var movieSortColumns = map[string]string{
	SortTitle:     "m.title",
	SortYear:      "m.year",
	SortCreatedAt: "m.created_at",
}

// MovieRepository persists movies. Writes go through a go-repository-bun
// repository; filtered reads are plain bun queries.
type MovieRepository struct {
	db     *bun.DB
	movies repository.Repository[*Movie]
	now    func() time.Time
}

// NewMovieRepository creates a repository on db. A nil now uses time.Now.
func NewMovieRepository(db *bun.DB, now func() time.Time) *MovieRepository {
	if now == nil {
		now = time.Now
	}
	return &MovieRepository{
		db:     db,
		movies: repository.NewRepository[*Movie](db, movieHandlers()),
		now:    now,
	}
}

func movieHandlers() repository.ModelHandlers[*Movie] {
	return repository.ModelHandlers[*Movie]{
		NewRecord: func() *Movie { return &Movie{} },
		GetID: func(m *Movie) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return parseID(m.ID)
		},
		SetID: func(m *Movie, id uuid.UUID) {
			m.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
	}
}

func (r *MovieRepository) Load(ctx context.Context, id string) (Movie, error) {
	return r.load(ctx, r.db, id)
}

func (r *MovieRepository) load(ctx context.Context, db bun.IDB, id string) (Movie, error) {
	var movie Movie
	err := db.NewSelect().Model(&movie).Where("m.id = ?", id).Scan(ctx)
	if err != nil {
		return Movie{}, mapDBError("movie", id, err)
	}
	return movie, nil
}

// Query returns the requested page and the total number of matches.
func (r *MovieRepository) Query(ctx context.Context, q MovieQuery) ([]Movie, int, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	movies := make([]Movie, 0, q.PageSize)
	sel := r.db.NewSelect().Model(&movies)

	if q.Genre != "" {
		// Genres are stored as a JSON array, so match the quoted element.
		quoted, _ := json.Marshal(strings.ToLower(q.Genre))
		sel = sel.Where(`LOWER(m.genres) LIKE ? ESCAPE '\'`, "%"+escapeLike(string(quoted))+"%")
	}
	if q.Search != "" {
		sel = sel.Where(`LOWER(m.title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}
	if q.Year != nil {
		sel = sel.Where("m.year = ?", *q.Year)
	}
	if q.IsCustom != nil {
		sel = sel.Where("m.is_custom = ?", *q.IsCustom)
	}

	sel = sel.
		OrderExpr(movieSortColumns[q.Sort] + " " + strings.ToUpper(q.Order)).
		OrderExpr("m.id ASC").
		Limit(q.PageSize).
		Offset(q.offset())

	total, err := sel.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, mapDBError("movie", "", err)
	}
	return movies, total, nil
}

func (r *MovieRepository) Create(ctx context.Context, movie Movie) (Movie, error) {
	if movie.ID == "" {
		movie.ID = uuid.NewString()
	}
	now := r.now().UTC()
	movie.CreatedAt = now
	movie.UpdatedAt = now
	movie.normalize()

	if err := movie.Validate(); err != nil {
		return Movie{}, err
	}

	if _, err := r.movies.Create(ctx, &movie); err != nil {
		return Movie{}, mapDBError("movie", movie.ID, err)
	}
	return movie, nil
}

// Update loads the movie, applies mutate and stores the result in one transaction.
func (r *MovieRepository) Update(ctx context.Context, id string, mutate func(Movie) (Movie, error)) (Movie, error) {
	var updated Movie
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = r.now().UTC()
		next.normalize()

		if err := next.Validate(); err != nil {
			return err
		}
		if _, err := r.movies.UpdateTx(ctx, tx, &next); err != nil {
			return mapDBError("movie", id, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return Movie{}, err
	}
	return updated, nil
}

// Delete removes the movie. A missing id is reported as not found.
func (r *MovieRepository) Delete(ctx context.Context, id string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		return mapDBError("movie", id, r.movies.DeleteTx(ctx, tx, &current))
	})
}

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

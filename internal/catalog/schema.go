package catalog

import (
	"context"

	"github.com/goliatone/cinebase/internal/database"
	"github.com/uptrace/bun"
)

// Migrations returns the steps creating the catalog schema.
func Migrations() []database.Step {
	return []database.Step{
		{Name: "create users", Up: createUsers},
		{Name: "create movies", Up: createMovies},
	}
}

func createUsers(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().Model((*User)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateIndex().Model((*User)(nil)).
		Index("ix_users_email").Unique().Column("email").
		IfNotExists().Exec(ctx)
	return err
}

func createMovies(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().Model((*Movie)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}

	indexes := []struct {
		name   string
		column string
		unique bool
	}{
		{name: "ix_movies_tmdb_id", column: "tmdb_id", unique: true},
		{name: "ix_movies_title", column: "title"},
		{name: "ix_movies_year", column: "year"},
	}
	for _, ix := range indexes {
		q := db.NewCreateIndex().Model((*Movie)(nil)).Index(ix.name).Column(ix.column).IfNotExists()
		if ix.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

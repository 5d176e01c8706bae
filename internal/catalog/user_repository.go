package catalog

import (
	"context"
	"time"

	"github.com/goliatone/cinebase/repositorycache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var _ repositorycache.Repository[User, UserQuery] = (*UserRepository)(nil)

// UserRepository persists users. Writes go through a go-repository-bun
// repository keyed by email.
type UserRepository struct {
	db    *bun.DB
	users repository.Repository[*User]
	now   func() time.Time
}

// NewUserRepository creates a repository on db. A nil now uses time.Now.
func NewUserRepository(db *bun.DB, now func() time.Time) *UserRepository {
	if now == nil {
		now = time.Now
	}
	return &UserRepository{
		db:    db,
		users: repository.NewRepository[*User](db, userHandlers()),
		now:   now,
	}
}

func userHandlers() repository.ModelHandlers[*User] {
	return repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return parseID(u.ID)
		},
		SetID: func(u *User, id uuid.UUID) {
			u.ID = id.String()
		},
		GetIdentifier: func() string {
			return "email"
		},
	}
}

func (r *UserRepository) Load(ctx context.Context, id string) (User, error) {
	return r.load(ctx, r.db, id)
}

func (r *UserRepository) load(ctx context.Context, db bun.IDB, id string) (User, error) {
	var user User
	if err := db.NewSelect().Model(&user).Where("u.id = ?", id).Scan(ctx); err != nil {
		return User{}, mapDBError("user", id, err)
	}
	return user, nil
}

// FindByEmail looks a user up by address. It is used for login and is never
// cached, since the cached form carries no password hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)

	var user User
	if err := r.db.NewSelect().Model(&user).Where("u.email = ?", email).Scan(ctx); err != nil {
		return User{}, mapDBError("user", email, err)
	}
	return user, nil
}

// Query returns the requested page, newest first, and the total number of matches.
func (r *UserRepository) Query(ctx context.Context, q UserQuery) ([]User, int, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	users := make([]User, 0, q.PageSize)
	sel := r.db.NewSelect().Model(&users)
	if q.Role != "" {
		sel = sel.Where("u.role = ?", q.Role)
	}
	if q.Email != "" {
		sel = sel.Where(`u.email LIKE ? ESCAPE '\'`, "%"+escapeLike(q.Email)+"%")
	}

	total, err := sel.
		OrderExpr("u.created_at DESC").
		OrderExpr("u.id ASC").
		Limit(q.PageSize).
		Offset(q.offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, mapDBError("user", "", err)
	}
	return users, total, nil
}

func (r *UserRepository) Create(ctx context.Context, user User) (User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	user.Email = NormalizeEmail(user.Email)
	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := user.Validate(); err != nil {
		return User{}, err
	}
	if _, err := r.users.Create(ctx, &user); err != nil {
		return User{}, mapDBError("user", user.ID, err)
	}
	return user, nil
}

// Update loads the user, applies mutate and stores the result in one transaction.
func (r *UserRepository) Update(ctx context.Context, id string, mutate func(User) (User, error)) (User, error) {
	var updated User
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
		next.Email = NormalizeEmail(next.Email)
		if next.PasswordHash == "" {
			next.PasswordHash = current.PasswordHash
		}

		if err := next.Validate(); err != nil {
			return err
		}
		if _, err := r.users.UpdateTx(ctx, tx, &next); err != nil {
			return mapDBError("user", id, err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		return mapDBError("user", id, r.users.DeleteTx(ctx, tx, &current))
	})
}

// SetRole returns a mutation assigning role, for use with Update.
func SetRole(role Role) func(User) (User, error) {
	return func(u User) (User, error) {
		if !role.Valid() {
			return User{}, &ValidationError{Fields: map[string]string{"role": "must be a valid value"}}
		}
		u.Role = role
		return u, nil
	}
}

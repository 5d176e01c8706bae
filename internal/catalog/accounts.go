package catalog

import "context"

// UserCreator creates users, typically through the cached repository so
// that cached user lists are invalidated.
type UserCreator interface {
	Create(ctx context.Context, user User) (User, error)
}

// Accounts joins the uncached email lookup used at login with cached user
// writes. It satisfies auth.UserStore.
type Accounts struct {
	users   *UserRepository
	creator UserCreator
}

// NewAccounts creates Accounts. A nil creator writes through users directly.
func NewAccounts(users *UserRepository, creator UserCreator) *Accounts {
	if creator == nil {
		creator = users
	}
	return &Accounts{users: users, creator: creator}
}

func (a *Accounts) FindByEmail(ctx context.Context, email string) (User, error) {
	return a.users.FindByEmail(ctx, email)
}

func (a *Accounts) Create(ctx context.Context, user User) (User, error) {
	return a.creator.Create(ctx, user)
}

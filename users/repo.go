package users

import "context"

// Repo persists users. Lookups of unknown users return errors.ErrUserNotFound
// and Create of a taken username returns errors.ErrUserExists.
type Repo interface {
	Create(ctx context.Context, user *User) error
	Upsert(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Delete(ctx context.Context, username string) error
	List(ctx context.Context, offset, limit int) ([]*User, error)
}

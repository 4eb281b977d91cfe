package users

import "context"

type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	ListByIDs(ctx context.Context, ids []string) ([]User, error)
	UpdateAdherenceRate(ctx context.Context, id string, rate int) error
}

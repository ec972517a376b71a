package repository

import (
	"context"
	"time"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
)

// UserRepository is the account store.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

package users

import (
	"context"

	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
)

// Repository persists user records. Token list mutations are single
// statements so concurrent logins and logouts of one user never lose updates.
type Repository interface {
	Create(ctx context.Context, user *models.User, token string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) (*models.User, error)

	AppendToken(ctx context.Context, id string, token string) error
	RemoveToken(ctx context.Context, id string, token string) error
	ClearTokens(ctx context.Context, id string) error

	SetAvatar(ctx context.Context, id string, data []byte, key string) error
	ClearAvatar(ctx context.Context, id string) error
	GetAvatar(ctx context.Context, id string) (data []byte, key string, err error)
}

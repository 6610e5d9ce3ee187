package interfaces

import (
	"context"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/models"
)

// AccountRepository lookups return (nil, nil) when the row does not exist.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmailAddress(ctx context.Context, emailAddress string) (*models.Account, error)
	EmailAddressTaken(ctx context.Context, emailAddress, excludeID string) (bool, error)
	List(ctx context.Context) ([]*models.Account, error)
	ListActive(ctx context.Context) ([]*models.Account, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	GetByAccountAndUID(ctx context.Context, accountID string, uid uint32) (*models.Message, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	ListByAccount(ctx context.Context, accountID string, filter dto.MessageFilter) ([]*models.Message, error)
	CountByAccount(ctx context.Context, accountID string) (int64, error)
}

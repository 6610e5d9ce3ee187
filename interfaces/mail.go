package interfaces

import (
	"context"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/models"
)

type AccountService interface {
	Probe(ctx context.Context, params dto.ConnectionParams) error
	Open(ctx context.Context, account *models.Account) (IMAPSession, error)
	CreateAccount(ctx context.Context, input dto.CreateAccountInput) (*models.Account, error)
	UpdateAccount(ctx context.Context, existing *models.Account, input dto.UpdateAccountInput) (*models.Account, error)
	TestExistingConnection(ctx context.Context, account *models.Account) bool
	RecordConnectionSuccess(ctx context.Context, account *models.Account) error
	RecordConnectionFailure(ctx context.Context, account *models.Account, cause error) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	ListActiveAccounts(ctx context.Context) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

type MessageService interface {
	SyncMessages(ctx context.Context, account *models.Account, folder string, limit int) ([]*models.Message, error)
	StoreMessage(ctx context.Context, account *models.Account, remote IMAPMessage) (*models.Message, error)
	GetFolders(ctx context.Context, account *models.Account) ([]dto.Folder, error)
	GetMessageCount(ctx context.Context, account *models.Account, folder string) (*dto.MessageCount, error)
	ListMessages(ctx context.Context, accountID string, filter dto.MessageFilter) ([]*models.Message, error)
}

// SyncJobService runs the core operations on behalf of hosts: with per
// account locking and event publication.
type SyncJobService interface {
	SyncAccount(ctx context.Context, account *models.Account, folder string, limit int) ([]*models.Message, error)
	CheckConnection(ctx context.Context, account *models.Account) bool
	CheckActiveConnections(ctx context.Context) error
	SyncActiveAccounts(ctx context.Context) error
}

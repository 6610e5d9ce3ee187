package syncjob

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mserrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

type Config struct {
	DefaultFolder string
	SyncLimit     int
}

type syncJobService struct {
	accounts  interfaces.AccountService
	messages  interfaces.MessageService
	locker    interfaces.AccountLocker
	publisher interfaces.EventPublisher
	log       logger.Logger
	cfg       Config
}

func NewSyncJobService(accounts interfaces.AccountService, messages interfaces.MessageService, locker interfaces.AccountLocker, publisher interfaces.EventPublisher, log logger.Logger, cfg Config) interfaces.SyncJobService {
	if cfg.DefaultFolder == "" {
		cfg.DefaultFolder = "INBOX"
	}
	return &syncJobService{
		accounts:  accounts,
		messages:  messages,
		locker:    locker,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
	}
}

// SyncAccount runs one sync while holding the account lock. A concurrent run
// for the same account fails fast with ErrSyncInProgress.
func (s *syncJobService) SyncAccount(ctx context.Context, account *models.Account, folder string, limit int) ([]*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncJobService.SyncAccount")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.ID)

	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	if limit <= 0 {
		limit = s.cfg.SyncLimit
	}

	release, ok, err := s.locker.TryLock(ctx, account.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to acquire sync lock")
	}
	if !ok {
		span.SetTag("locked", true)
		return nil, mserrors.ErrSyncInProgress
	}
	defer release()

	messages, err := s.messages.SyncMessages(ctx, account, folder, limit)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorw("Sync failed", "account_id", account.ID, "folder", folder, "error", err.Error())
		s.publish(ctx, account.ID, dto.EventSyncFailed, dto.SyncFailedData{
			AccountID: account.ID,
			Folder:    folder,
			Error:     err.Error(),
		})
		return nil, err
	}

	data := dto.SyncCompletedData{
		AccountID: account.ID,
		Folder:    folder,
		Synced:    len(messages),
	}
	if account.LastSyncedAt != nil {
		data.LastSyncedAt = account.LastSyncedAt.Format(time.RFC3339)
	}
	s.publish(ctx, account.ID, dto.EventSyncCompleted, data)

	return messages, nil
}

func (s *syncJobService) CheckConnection(ctx context.Context, account *models.Account) bool {
	healthy := s.accounts.TestExistingConnection(ctx, account)

	data := dto.ConnectionCheckedData{AccountID: account.ID, Healthy: healthy}
	if !healthy && account.LastConnectionError != nil {
		data.Error = *account.LastConnectionError
	}
	s.publish(ctx, account.ID, dto.EventConnectionChecked, data)
	return healthy
}

// CheckActiveConnections probes every active account. Individual failures are
// persisted on the account, never returned.
func (s *syncJobService) CheckActiveConnections(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncJobService.CheckActiveConnections")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	accounts, err := s.accounts.ListActiveAccounts(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to list active accounts")
	}

	unhealthy := 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.CheckConnection(ctx, account) {
			unhealthy++
		}
	}

	s.log.Infow("Connection check finished", "accounts", len(accounts), "unhealthy", unhealthy)
	return nil
}

// SyncActiveAccounts syncs the default folder of every active account.
// Accounts already being synced are skipped.
func (s *syncJobService) SyncActiveAccounts(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncJobService.SyncActiveAccounts")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	accounts, err := s.accounts.ListActiveAccounts(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to list active accounts")
	}

	failed, skipped := 0, 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := s.SyncAccount(ctx, account, s.cfg.DefaultFolder, s.cfg.SyncLimit)
		switch {
		case err == nil:
		case errors.Is(err, mserrors.ErrSyncInProgress):
			skipped++
		default:
			failed++
		}
	}

	s.log.Infow("Scheduled sync finished", "accounts", len(accounts), "failed", failed, "skipped", skipped)
	return nil
}

func (s *syncJobService) publish(ctx context.Context, accountID, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, accountID, enum.MAIL_ACCOUNT, eventType, data); err != nil {
		s.log.Errorw("Failed to publish event", "event_type", eventType, "account_id", accountID, "error", err.Error())
	}
}

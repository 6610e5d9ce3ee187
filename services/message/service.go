package message

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
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

const DefaultFolder = "INBOX"

type Config struct {
	DefaultFolder  string
	CaptureRawBody bool
}

type Option func(*messageService)

func WithClock(now func() time.Time) Option {
	return func(s *messageService) {
		s.now = now
	}
}

type messageService struct {
	repositories *repository.Repositories
	accounts     interfaces.AccountService
	log          logger.Logger
	cfg          Config
	now          func() time.Time
}

func NewMessageService(repos *repository.Repositories, accounts interfaces.AccountService, log logger.Logger, cfg Config, opts ...Option) interfaces.MessageService {
	if cfg.DefaultFolder == "" {
		cfg.DefaultFolder = DefaultFolder
	}
	s := &messageService{
		repositories: repos,
		accounts:     accounts,
		log:          log,
		cfg:          cfg,
		now:          utils.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncMessages reconciles one folder of the account into storage. Per message
// failures are logged and skipped; the run still stamps last_synced_at.
func (s *messageService) SyncMessages(ctx context.Context, account *models.Account, folder string, limit int) ([]*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageService.SyncMessages")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.ID)

	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	tracing.TagFolder(span, folder)
	span.SetTag("limit", limit)

	session, err := s.accounts.Open(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		if rerr := s.accounts.RecordConnectionFailure(ctx, account, err); rerr != nil {
			s.log.Errorw("Failed to record connection failure", "account_id", account.ID, "error", rerr.Error())
		}
		return nil, err
	}
	defer s.disconnect(session, account)

	mailbox, err := session.SelectFolder(ctx, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to select folder %s", folder)
	}

	remotes, err := mailbox.Messages(ctx, limit)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to list messages in %s", folder)
	}
	if limit > 0 && len(remotes) > limit {
		remotes = remotes[:limit]
	}

	synced := make([]*models.Message, 0, len(remotes))
	failed := 0
	for _, remote := range remotes {
		if err := ctx.Err(); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}

		msg, err := s.StoreMessage(ctx, account, remote)
		if err != nil {
			failed++
			itemErr := &mserrors.SyncItemError{UID: remote.UID(), Err: err}
			s.log.Errorw("Failed to sync message",
				"account_id", account.ID,
				"uid", remote.UID(),
				"error", itemErr.Error())
			continue
		}
		synced = append(synced, msg)
	}

	syncedAt := s.now()
	err = s.repositories.AccountRepository.Update(ctx, account.ID, map[string]interface{}{
		"last_synced_at": syncedAt,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to stamp last sync time")
	}
	account.LastSyncedAt = &syncedAt

	span.SetTag("synced", len(synced))
	span.SetTag("failed", failed)
	s.log.Infow("Folder synced",
		"account_id", account.ID,
		"folder", folder,
		"synced", len(synced),
		"failed", failed)

	return synced, nil
}

// StoreMessage creates the row on first sight of a UID. Afterwards only the
// flags and sync state are refreshed.
func (s *messageService) StoreMessage(ctx context.Context, account *models.Account, remote interfaces.IMAPMessage) (*models.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageService.StoreMessage")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.ID)
	span.SetTag("uid", remote.UID())

	existing, err := s.repositories.MessageRepository.GetByAccountAndUID(ctx, account.ID, remote.UID())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if existing != nil {
		return s.refreshFlags(ctx, existing, remote)
	}

	msg, err := s.parseMessage(account, remote)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err = s.repositories.MessageRepository.Create(ctx, msg); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return msg, nil
}

func (s *messageService) refreshFlags(ctx context.Context, existing *models.Message, remote interfaces.IMAPMessage) (*models.Message, error) {
	flags := rawFlags(remote.Flags())
	fs := enum.NewFlagSet(flags)

	err := s.repositories.MessageRepository.Update(ctx, existing.ID, map[string]interface{}{
		"is_seen":         fs.Seen,
		"is_answered":     fs.Answered,
		"is_flagged":      fs.Flagged,
		"is_deleted":      fs.Deleted,
		"is_draft":        fs.Draft,
		"is_recent":       fs.Recent,
		"flags":           flags,
		"synced_at":       s.now(),
		"last_sync_error": nil,
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.repositories.MessageRepository.GetByID(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	if reloaded == nil {
		return nil, repository.ErrMessageNotFound
	}
	return reloaded, nil
}

func (s *messageService) ListMessages(ctx context.Context, accountID string, filter dto.MessageFilter) ([]*models.Message, error) {
	return s.repositories.MessageRepository.ListByAccount(ctx, accountID, filter)
}

func (s *messageService) disconnect(session interfaces.IMAPSession, account *models.Account) {
	if err := session.Disconnect(); err != nil {
		s.log.Warnw("Disconnect failed", "account_id", account.ID, "error", err.Error())
	}
}

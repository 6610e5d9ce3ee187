package message

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

// GetFolders lists the account's mailboxes. Connection failures are not
// recorded on the account.
func (s *messageService) GetFolders(ctx context.Context, account *models.Account) ([]dto.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageService.GetFolders")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.ID)

	session, err := s.accounts.Open(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer s.disconnect(session, account)

	folders, err := session.ListFolders(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list folders")
	}
	return folders, nil
}

func (s *messageService) GetMessageCount(ctx context.Context, account *models.Account, folder string) (*dto.MessageCount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "messageService.GetMessageCount")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.ID)

	if folder == "" {
		folder = s.cfg.DefaultFolder
	}
	tracing.TagFolder(span, folder)

	session, err := s.accounts.Open(ctx, account)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer s.disconnect(session, account)

	mailbox, err := session.SelectFolder(ctx, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to select folder %s", folder)
	}

	total, err := mailbox.Count(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to count messages")
	}
	unread, err := mailbox.CountUnseen(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to count unseen messages")
	}
	if unread > total {
		unread = total
	}

	return &dto.MessageCount{
		Total:  total,
		Unread: unread,
		Read:   total - unread,
	}, nil
}

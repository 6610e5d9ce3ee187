package imap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	mserrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
)

type session struct {
	c      *client.Client
	log    logger.Logger
	addr   string
	dialer *Dialer
	closed bool
}

func (s *session) ListFolders(ctx context.Context) ([]dto.Folder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSession.ListFolders")
	defer span.Finish()
	tracing.TagComponentIMAP(span)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.c.List("", "*", mailboxes)
	}()

	var folders []dto.Folder
	for m := range mailboxes {
		folders = append(folders, toFolder(m))
	}

	if err := <-done; err != nil {
		err = fmt.Errorf("error listing folders: %w", err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("folders.count", len(folders))
	return folders, nil
}

func toFolder(m *imap.MailboxInfo) dto.Folder {
	name := m.Name
	if m.Delimiter != "" {
		if idx := strings.LastIndex(m.Name, m.Delimiter); idx >= 0 {
			name = m.Name[idx+len(m.Delimiter):]
		}
	}

	hasChildren := false
	for _, attr := range m.Attributes {
		if strings.EqualFold(attr, imap.HasChildrenAttr) {
			hasChildren = true
			break
		}
	}

	return dto.Folder{
		Name:        name,
		FullName:    m.Name,
		Delimiter:   m.Delimiter,
		HasChildren: hasChildren,
	}
}

// SelectFolder opens the folder read-only so fetching never mutates \Seen.
func (s *session) SelectFolder(ctx context.Context, name string) (interfaces.IMAPFolder, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPSession.SelectFolder")
	defer span.Finish()
	tracing.TagComponentIMAP(span)
	tracing.TagFolder(span, name)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mbox, err := s.c.Select(name, true)
	if err != nil {
		if isFolderRejected(s.c, err) {
			err = fmt.Errorf("%w: %s: %v", mserrors.ErrFolderNotFound, name, err)
		} else {
			err = fmt.Errorf("error selecting folder %s: %w", name, err)
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("messages.total", mbox.Messages)
	s.log.Debugw("Selected folder", "server", s.addr, "folder", name, "messages", mbox.Messages)

	return &folder{s: s, name: name, status: mbox}, nil
}

// Disconnect logs out, bounded by logoutTimeout. It is safe to call twice.
func (s *session) Disconnect() error {
	if s.closed || s.c == nil {
		return nil
	}
	s.closed = true

	s.c.Timeout = logoutTimeout
	done := make(chan error, 1)
	go func() {
		done <- s.c.Logout()
	}()

	select {
	case err := <-done:
		if err != nil && err != client.ErrAlreadyLoggedOut {
			return fmt.Errorf("logout error: %w", err)
		}
		return nil
	case <-time.After(logoutTimeout):
		s.c.Terminate()
		return fmt.Errorf("logout from %s timed out", s.addr)
	}
}

// isFolderRejected reports whether the server answered SELECT with NO while
// keeping the connection, i.e. the mailbox does not exist or is not selectable.
func isFolderRejected(c *client.Client, err error) bool {
	var statusErr *imap.ErrStatusResp
	if errors.As(err, &statusErr) {
		return statusErr.Resp != nil && statusErr.Resp.Type == imap.StatusRespNo
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return false
	}
	return c.State() != imap.LogoutState
}

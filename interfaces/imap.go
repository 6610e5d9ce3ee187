package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailsync/dto"
)

// IMAPDialer opens authenticated sessions. Implementations surface any
// dial, TLS or login failure as an error; callers classify it.
type IMAPDialer interface {
	Connect(ctx context.Context, params dto.ConnectionParams) (IMAPSession, error)
}

type IMAPSession interface {
	ListFolders(ctx context.Context) ([]dto.Folder, error)
	SelectFolder(ctx context.Context, name string) (IMAPFolder, error)
	Disconnect() error
}

type IMAPFolder interface {
	Name() string
	// Messages returns handles in server order, capped to limit when limit > 0.
	Messages(ctx context.Context, limit int) ([]IMAPMessage, error)
	Count(ctx context.Context) (uint32, error)
	CountUnseen(ctx context.Context) (uint32, error)
}

// IMAPMessage exposes one remote message. Envelope level accessors are
// served from the listing; body and header accessors may hit the server.
type IMAPMessage interface {
	UID() uint32
	SeqNum() uint32
	MessageID() string
	Subject() string
	Date() time.Time
	Size() uint32
	From() *dto.Address
	ReplyTo() *dto.Address
	InReplyTo() string
	Flags() []string
	References() ([]string, error)
	TextBody() (string, error)
	HTMLBody() (string, error)
	RawHeader() (string, error)
	RawBody() (string, error)
	Header(name string) ([]string, error)
}

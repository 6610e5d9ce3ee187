// Package imaptest provides an in-memory IMAP transport for service tests.
package imaptest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-message/textproto"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	mserrors "github.com/customeros/mailsync/internal/errors"
)

// Dialer hands out sessions over a fixed set of folders.
type Dialer struct {
	mu sync.Mutex

	ConnectErr    error
	ListErr       error
	DisconnectErr error
	FolderList    []dto.Folder
	Folders       map[string]*Folder

	Connects    []dto.ConnectionParams
	Disconnects int
}

func NewDialer(folders ...*Folder) *Dialer {
	d := &Dialer{Folders: make(map[string]*Folder)}
	for _, f := range folders {
		d.Folders[f.FullName] = f
		d.FolderList = append(d.FolderList, dto.Folder{Name: f.FullName, FullName: f.FullName, Delimiter: "/"})
	}
	return d
}

func (d *Dialer) Connect(ctx context.Context, params dto.ConnectionParams) (interfaces.IMAPSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Connects = append(d.Connects, params)
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	return &session{d: d}, nil
}

func (d *Dialer) ConnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Connects)
}

func (d *Dialer) DisconnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Disconnects
}

type session struct {
	d *Dialer
}

func (s *session) ListFolders(ctx context.Context) ([]dto.Folder, error) {
	if s.d.ListErr != nil {
		return nil, s.d.ListErr
	}
	return s.d.FolderList, nil
}

func (s *session) SelectFolder(ctx context.Context, name string) (interfaces.IMAPFolder, error) {
	f, ok := s.d.Folders[name]
	if !ok {
		return nil, errors.Wrapf(mserrors.ErrFolderNotFound, "no such folder %q", name)
	}
	if f.SelectErr != nil {
		return nil, f.SelectErr
	}
	return f, nil
}

func (s *session) Disconnect() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.Disconnects++
	return s.d.DisconnectErr
}

type Folder struct {
	FullName    string
	Items       []*Message
	Unseen      uint32
	SelectErr   error
	MessagesErr error
	CountErr    error
}

func (f *Folder) Name() string {
	return f.FullName
}

func (f *Folder) Messages(ctx context.Context, limit int) ([]interfaces.IMAPMessage, error) {
	if f.MessagesErr != nil {
		return nil, f.MessagesErr
	}
	var out []interfaces.IMAPMessage
	for _, m := range f.Items {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *Folder) Count(ctx context.Context) (uint32, error) {
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	return uint32(len(f.Items)), nil
}

func (f *Folder) CountUnseen(ctx context.Context) (uint32, error) {
	if f.CountErr != nil {
		return 0, f.CountErr
	}
	return f.Unseen, nil
}

// Message is a scripted remote message. The *Err fields make the
// matching accessors fail.
type Message struct {
	Uid          uint32
	Seq          uint32
	MsgID        string
	Subj         string
	Sent         time.Time
	Sz           uint32
	FromAddr     *dto.Address
	ReplyToAddr  *dto.Address
	ReplyToID    string
	Refs         []string
	Text         string
	HTML         string
	RawHdr       string
	Raw          string
	FlagList     []string
	Headers      map[string][]string
	HeaderErr    error // fails References and every Header lookup
	HeaderErrs   map[string]error
	BodyErr      error
	RawHeaderErr error

	mu          sync.Mutex
	BodyReads   int
	HeaderReads int
}

func (m *Message) UID() uint32           { return m.Uid }
func (m *Message) SeqNum() uint32        { return m.Seq }
func (m *Message) MessageID() string     { return m.MsgID }
func (m *Message) Subject() string       { return m.Subj }
func (m *Message) Date() time.Time       { return m.Sent }
func (m *Message) Size() uint32          { return m.Sz }
func (m *Message) From() *dto.Address    { return m.FromAddr }
func (m *Message) ReplyTo() *dto.Address { return m.ReplyToAddr }
func (m *Message) InReplyTo() string     { return m.ReplyToID }
func (m *Message) Flags() []string       { return m.FlagList }

func (m *Message) References() ([]string, error) {
	if m.HeaderErr != nil {
		return nil, m.HeaderErr
	}
	return m.Refs, nil
}

func (m *Message) TextBody() (string, error) {
	m.countBodyRead()
	if m.BodyErr != nil {
		return "", m.BodyErr
	}
	return m.Text, nil
}

func (m *Message) HTMLBody() (string, error) {
	m.countBodyRead()
	if m.BodyErr != nil {
		return "", m.BodyErr
	}
	return m.HTML, nil
}

func (m *Message) RawHeader() (string, error) {
	if m.RawHeaderErr != nil {
		return "", m.RawHeaderErr
	}
	return m.RawHdr, nil
}

func (m *Message) RawBody() (string, error) {
	m.countBodyRead()
	if m.BodyErr != nil {
		return "", m.BodyErr
	}
	return m.Raw, nil
}

func (m *Message) Header(name string) ([]string, error) {
	m.mu.Lock()
	m.HeaderReads++
	m.mu.Unlock()
	if m.HeaderErr != nil {
		return nil, m.HeaderErr
	}
	for key, err := range m.HeaderErrs {
		if strings.EqualFold(key, name) {
			return nil, err
		}
	}
	header := textproto.HeaderFromMap(m.Headers)
	var values []string
	fields := header.FieldsByKey(name)
	for fields.Next() {
		values = append(values, fields.Value())
	}
	return values, nil
}

func (m *Message) countBodyRead() {
	m.mu.Lock()
	m.BodyReads++
	m.mu.Unlock()
}

func (m *Message) Reads() (body, header int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BodyReads, m.HeaderReads
}

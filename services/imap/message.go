package imap

import (
	"bufio"
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/utils"
)

// message wraps a listing entry. The full RFC822 source is fetched by UID
// on first access to any body or header accessor and then cached.
type message struct {
	f   *folder
	msg *imap.Message

	loaded  bool
	loadErr error
	raw     []byte
	header  textproto.Header
	env     *enmime.Envelope
}

func (m *message) UID() uint32 {
	return m.msg.Uid
}

func (m *message) SeqNum() uint32 {
	return m.msg.SeqNum
}

func (m *message) MessageID() string {
	if m.msg.Envelope == nil {
		return ""
	}
	return m.msg.Envelope.MessageId
}

func (m *message) Subject() string {
	if m.msg.Envelope == nil {
		return ""
	}
	return m.msg.Envelope.Subject
}

func (m *message) Date() time.Time {
	if m.msg.Envelope == nil {
		return time.Time{}
	}
	return m.msg.Envelope.Date
}

func (m *message) Size() uint32 {
	return m.msg.Size
}

func (m *message) From() *dto.Address {
	if m.msg.Envelope == nil {
		return nil
	}
	return firstAddress(m.msg.Envelope.From)
}

func (m *message) ReplyTo() *dto.Address {
	if m.msg.Envelope == nil {
		return nil
	}
	return firstAddress(m.msg.Envelope.ReplyTo)
}

func (m *message) InReplyTo() string {
	if m.msg.Envelope == nil {
		return ""
	}
	return m.msg.Envelope.InReplyTo
}

func (m *message) Flags() []string {
	return m.msg.Flags
}

func (m *message) References() ([]string, error) {
	values, err := m.Header("References")
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, v := range values {
		for _, ref := range utils.SplitHeaderList(v) {
			if !utils.IsStringInSlice(ref, refs) {
				refs = append(refs, ref)
			}
		}
	}
	return refs, nil
}

func (m *message) TextBody() (string, error) {
	if err := m.load(); err != nil {
		return "", err
	}
	// enmime down-converts HTML into Text when no plain part exists.
	if m.env.Root != nil && m.env.Root.BreadthMatchFirst(isPlainTextPart) == nil {
		return "", nil
	}
	return m.env.Text, nil
}

func (m *message) HTMLBody() (string, error) {
	if err := m.load(); err != nil {
		return "", err
	}
	return m.env.HTML, nil
}

func (m *message) RawHeader() (string, error) {
	if err := m.load(); err != nil {
		return "", err
	}
	return string(splitHeader(m.raw)), nil
}

func (m *message) RawBody() (string, error) {
	if err := m.load(); err != nil {
		return "", err
	}
	return string(m.raw), nil
}

func (m *message) Header(name string) ([]string, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	var values []string
	fields := m.header.FieldsByKey(name)
	for fields.Next() {
		values = append(values, fields.Value())
	}
	return values, nil
}

func (m *message) load() error {
	if m.loaded {
		return m.loadErr
	}
	m.loaded = true
	m.loadErr = m.fetchSource()
	return m.loadErr
}

func (m *message) fetchSource() error {
	c := m.f.s.c

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(m.msg.Uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	c.Timeout = m.f.s.dialer.FetchTimeout
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var fetched *imap.Message
	for msg := range messages {
		if fetched == nil {
			fetched = msg
		}
	}
	c.Timeout = m.f.s.dialer.CommandTimeout

	if err := <-done; err != nil {
		return fmt.Errorf("error fetching uid %d: %w", m.msg.Uid, err)
	}
	if fetched == nil {
		return fmt.Errorf("message with uid %d not found", m.msg.Uid)
	}

	literal := fetched.GetBody(section)
	if literal == nil {
		return fmt.Errorf("server returned no body for uid %d", m.msg.Uid)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(literal); err != nil {
		return fmt.Errorf("error reading body of uid %d: %w", m.msg.Uid, err)
	}
	m.raw = buf.Bytes()

	header, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(m.raw)))
	if err != nil {
		return fmt.Errorf("error parsing header of uid %d: %w", m.msg.Uid, err)
	}
	m.header = header

	env, err := enmime.ReadEnvelope(bytes.NewReader(m.raw))
	if err != nil {
		return fmt.Errorf("error parsing body of uid %d: %w", m.msg.Uid, err)
	}
	m.env = env

	return nil
}

func isPlainTextPart(p *enmime.Part) bool {
	return p.ContentType == "text/plain" && p.Disposition != "attachment"
}

func firstAddress(addrs []*imap.Address) *dto.Address {
	if len(addrs) == 0 || addrs[0] == nil {
		return nil
	}
	return &dto.Address{
		Email: addrs[0].Address(),
		Name:  addrs[0].PersonalName,
	}
}

// splitHeader returns everything before the first blank line.
func splitHeader(raw []byte) []byte {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx+2]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx+1]
	}
	return raw
}

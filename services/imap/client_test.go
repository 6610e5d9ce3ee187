package imap

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	mserrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/testutil"
)

const htmlOnlyMessage = "From: Alice <alice@example.org>\r\n" +
	"Reply-To: Help Desk <help@example.org>\r\n" +
	"To: contact@example.org\r\n" +
	"Subject: Re: Budget\r\n" +
	"Date: Thu, 02 Jan 2025 10:00:00 +0000\r\n" +
	"Message-ID: <child@example.org>\r\n" +
	"In-Reply-To: <parent@x>\r\n" +
	"References: <root@x>\r\n <parent@x>\r\n" +
	"Importance: High\r\n" +
	"X-Priority: 2 (High)\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Numbers <b>attached</b></p>"

func startServer(t *testing.T) (*memory.Backend, int) {
	t.Helper()

	be := memory.New()
	s := server.New(be)
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	_, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return be, port
}

func params(port int) dto.ConnectionParams {
	return dto.ConnectionParams{
		Host:         "127.0.0.1",
		Port:         port,
		Encryption:   enum.EmailSecurityNone,
		Username:     "username",
		Password:     "password",
		ValidateCert: true,
	}
}

func TestDialer_ConnectAndList(t *testing.T) {
	_, port := startServer(t)
	d := NewDialer(testutil.NewTestLogger())

	sess, err := d.Connect(context.Background(), params(port))
	require.NoError(t, err)
	defer sess.Disconnect()

	folders, err := sess.ListFolders(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, folders)
	assert.Equal(t, "INBOX", folders[0].FullName)
	assert.Equal(t, "INBOX", folders[0].Name)

	assert.NoError(t, sess.Disconnect())
	assert.NoError(t, sess.Disconnect())
}

func TestDialer_BadCredentials(t *testing.T) {
	_, port := startServer(t)
	d := NewDialer(testutil.NewTestLogger())

	p := params(port)
	p.Password = "wrong"
	_, err := d.Connect(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login error")
}

func TestDialer_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	d := NewDialer(testutil.NewTestLogger())
	d.DialTimeout = 2 * time.Second
	_, err = d.Connect(context.Background(), params(port))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestFolder_MessagesAndCounts(t *testing.T) {
	be, port := startServer(t)

	user, err := be.Login(nil, "username", "password")
	require.NoError(t, err)
	inbox, err := user.GetMailbox("INBOX")
	require.NoError(t, err)
	require.NoError(t, inbox.CreateMessage([]string{"$Label1"}, time.Now(), bytes.NewBufferString(htmlOnlyMessage)))

	d := NewDialer(testutil.NewTestLogger())
	sess, err := d.Connect(context.Background(), params(port))
	require.NoError(t, err)
	defer sess.Disconnect()

	f, err := sess.SelectFolder(context.Background(), "INBOX")
	require.NoError(t, err)
	assert.Equal(t, "INBOX", f.Name())

	total, err := f.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), total)

	unseen, err := f.CountUnseen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), unseen)

	limited, err := f.Messages(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, uint32(6), limited[0].UID())

	msgs, err := f.Messages(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	first := msgs[0]
	assert.Equal(t, uint32(1), first.SeqNum())
	assert.Equal(t, "A little message, just for you", first.Subject())
	assert.Contains(t, first.Flags(), `\Seen`)
	text, err := first.TextBody()
	require.NoError(t, err)
	assert.Equal(t, "Hi there :)", text)

	second := msgs[1]
	assert.Equal(t, "Re: Budget", second.Subject())
	assert.Equal(t, "<parent@x>", second.InReplyTo())
	assert.Equal(t, "<child@example.org>", second.MessageID())
	assert.Equal(t, &dto.Address{Email: "alice@example.org", Name: "Alice"}, second.From())
	assert.Equal(t, &dto.Address{Email: "help@example.org", Name: "Help Desk"}, second.ReplyTo())
	assert.Equal(t, uint32(len(htmlOnlyMessage)), second.Size())
	assert.Contains(t, second.Flags(), "$label1", "keyword flags come back in canonical lowercase")

	importance, err := second.Header("importance")
	require.NoError(t, err)
	assert.Equal(t, []string{"High"}, importance)

	refs, err := second.References()
	require.NoError(t, err)
	assert.Equal(t, []string{"<root@x>", "<parent@x>"}, refs)

	text, err = second.TextBody()
	require.NoError(t, err)
	assert.Empty(t, text)
	html, err := second.HTMLBody()
	require.NoError(t, err)
	assert.Contains(t, html, "<b>attached</b>")

	rawHeader, err := second.RawHeader()
	require.NoError(t, err)
	assert.Contains(t, rawHeader, "X-Priority: 2 (High)")
	assert.NotContains(t, rawHeader, "<p>")
}

func TestSession_SelectUnknownFolder(t *testing.T) {
	_, port := startServer(t)
	d := NewDialer(testutil.NewTestLogger())

	sess, err := d.Connect(context.Background(), params(port))
	require.NoError(t, err)
	defer sess.Disconnect()

	_, err = sess.SelectFolder(context.Background(), "DoesNotExist")
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrFolderNotFound)
}

func TestSplitHeader(t *testing.T) {
	assert.Equal(t, "A: 1\r\n", string(splitHeader([]byte("A: 1\r\n\r\nbody"))))
	assert.Equal(t, "A: 1\n", string(splitHeader([]byte("A: 1\n\nbody"))))
	assert.Equal(t, "A: 1", string(splitHeader([]byte("A: 1"))))
}

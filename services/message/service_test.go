package message

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	mserrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/imaptest"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/testutil"
	"github.com/customeros/mailsync/services/account"
)

var (
	fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sentAt   = time.Date(2025, 2, 27, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	svc     *messageService
	dialer  *imaptest.Dialer
	inbox   *imaptest.Folder
	repos   *repository.Repositories
	account *models.Account
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()

	repos := testutil.NewTestRepositories(t)
	inbox := &imaptest.Folder{FullName: "INBOX"}
	archive := &imaptest.Folder{FullName: "Archive"}
	dialer := imaptest.NewDialer(inbox, archive)
	log := testutil.NewTestLogger()
	clock := func() time.Time { return fixedNow }

	acc := &models.Account{
		Name:         "Work",
		EmailAddress: "a@example.com",
		Host:         "mail.example.com",
		Port:         993,
		Encryption:   enum.EmailSecuritySSL,
		Username:     "a@example.com",
		Password:     "secret",
		IsActive:     true,
	}
	require.NoError(t, repos.AccountRepository.Create(ctx, acc))

	accounts := account.NewAccountService(repos, dialer, log, account.WithClock(clock))
	svc := NewMessageService(repos, accounts, log, cfg, WithClock(clock))

	return &fixture{
		svc:     svc.(*messageService),
		dialer:  dialer,
		inbox:   inbox,
		repos:   repos,
		account: acc,
	}
}

func budgetReply() *imaptest.Message {
	return &imaptest.Message{
		Uid:       500,
		Seq:       1,
		MsgID:     "<reply@x>",
		Subj:      "Re: Budget",
		Sent:      sentAt,
		Sz:        2048,
		FromAddr:  &dto.Address{Email: "cfo@example.com", Name: "CFO"},
		ReplyToID: "<parent@x>",
		Refs:      []string{"<parent@x>"},
		Text:      "Numbers attached.",
		RawHdr:    "Subject: Re: Budget\r\n",
		Raw:       "Subject: Re: Budget\r\n\r\nNumbers attached.",
		FlagList:  []string{`\Recent`},
		Headers: map[string][]string{
			"Importance": {"High"},
			"X-Priority": {"1 (Highest)"},
		},
	}
}

func plainMessage(uid uint32, subject string) *imaptest.Message {
	return &imaptest.Message{
		Uid:    uid,
		Seq:    uid,
		MsgID:  "<msg" + subject + "@x>",
		Subj:   subject,
		Sent:   sentAt,
		Text:   "body of " + subject,
		RawHdr: "Subject: " + subject + "\r\n",
	}
}

func TestSyncMessages_NewReplyGetsParentThreadHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.inbox.Items = []*imaptest.Message{budgetReply()}

	synced, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, synced, 1)

	stored, err := f.repos.MessageRepository.GetByAccountAndUID(ctx, f.account.ID, 500)
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.NotNil(t, stored.ThreadHash)
	assert.Equal(t, sha256Hex("<parent@x>"), *stored.ThreadHash)
	assert.NotEqual(t, sha256Hex("budget"), *stored.ThreadHash)

	assert.Equal(t, "Re: Budget", stored.Subject)
	assert.Equal(t, "<parent@x>", stored.InReplyTo)
	assert.Equal(t, "<parent@x>", stored.References)
	assert.Equal(t, "cfo@example.com", stored.FromEmail)
	assert.Equal(t, "CFO", stored.FromName)
	require.NotNil(t, stored.Importance)
	assert.Equal(t, 1, *stored.Importance)
	require.NotNil(t, stored.Priority)
	assert.Equal(t, 1, *stored.Priority)
	require.NotNil(t, stored.BodyPreview)
	assert.Equal(t, "Numbers attached.", *stored.BodyPreview)
	assert.Equal(t, Checksum("<reply@x>", "Re: Budget", sentAt), stored.Checksum)
	assert.True(t, stored.IsRecent)
	assert.False(t, stored.IsSeen)
	assert.Equal(t, []string{`\Recent`}, []string(stored.Flags))
	assert.Nil(t, stored.RawBody)
	assert.Equal(t, "Subject: Re: Budget\r\n", stored.RawHeaders)
	assert.Nil(t, stored.LastSyncError)

	reloaded, err := f.repos.AccountRepository.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastSyncedAt)
	assert.True(t, fixedNow.Equal(reloaded.LastSyncedAt.UTC()))
	assert.NotNil(t, f.account.LastSyncedAt)

	assert.Equal(t, 1, f.dialer.ConnectCount())
	assert.Equal(t, 1, f.dialer.DisconnectCount())
}

func TestSyncMessages_EmptyFolderDefaultsToInbox(t *testing.T) {
	f := newFixture(t, Config{})
	f.inbox.Items = []*imaptest.Message{plainMessage(1, "hello")}

	synced, err := f.svc.SyncMessages(context.Background(), f.account, "", 0)
	require.NoError(t, err)
	assert.Len(t, synced, 1)
}

func TestSyncMessages_ResyncUpdatesFlagsOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	remote := budgetReply()
	f.inbox.Items = []*imaptest.Message{remote}

	first, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	bodyReads, _ := remote.Reads()

	remote.FlagList = []string{`\Seen`, `\Flagged`, "$Important"}
	remote.Text = "changed on the server"
	remote.Subj = "changed subject"

	second, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, second, 1)

	count, err := f.repos.MessageRepository.CountByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got := second[0]
	assert.Equal(t, first[0].ID, got.ID)
	assert.Equal(t, "Re: Budget", got.Subject)
	assert.Equal(t, "Numbers attached.", got.BodyText)
	assert.Equal(t, first[0].Checksum, got.Checksum)
	assert.Equal(t, *first[0].ThreadHash, *got.ThreadHash)

	assert.True(t, got.IsSeen)
	assert.True(t, got.IsFlagged)
	assert.False(t, got.IsRecent)
	assert.Equal(t, []string{`\Seen`, `\Flagged`, "$Important"}, []string(got.Flags))

	afterReads, _ := remote.Reads()
	assert.Equal(t, bodyReads, afterReads, "existing messages must not be re-parsed")
}

func TestSyncMessages_ItemFailureIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	broken := plainMessage(2, "two")
	broken.HeaderErr = errors.New("header fetch failed")
	f.inbox.Items = []*imaptest.Message{plainMessage(1, "one"), broken, plainMessage(3, "three")}

	synced, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, synced, 2)
	assert.Equal(t, uint32(1), synced[0].RemoteUID)
	assert.Equal(t, uint32(3), synced[1].RemoteUID)

	missing, err := f.repos.MessageRepository.GetByAccountAndUID(ctx, f.account.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, missing)

	reloaded, err := f.repos.AccountRepository.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastSyncedAt)
}

func TestSyncMessages_BodyErrorIsItemFailure(t *testing.T) {
	f := newFixture(t, Config{})
	broken := plainMessage(1, "one")
	broken.BodyErr = errors.New("fetch BODY[] failed")
	f.inbox.Items = []*imaptest.Message{broken, plainMessage(2, "two")}

	synced, err := f.svc.SyncMessages(context.Background(), f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, uint32(2), synced[0].RemoteUID)
}

func TestSyncMessages_AdvisoryHeaderErrorsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	msg := plainMessage(8, "Re: Budget")
	msg.ReplyToID = "<parent@x>"
	msg.Headers = map[string][]string{"Importance": {"high"}, "X-Priority": {"1"}}
	msg.HeaderErrs = map[string]error{
		"importance": errors.New("importance header unreadable"),
		"x-priority": errors.New("x-priority header unreadable"),
	}
	f.inbox.Items = []*imaptest.Message{msg}

	synced, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Nil(t, synced[0].Importance)
	assert.Nil(t, synced[0].Priority)
	assert.NotNil(t, synced[0].ThreadHash)

	stored, err := f.repos.MessageRepository.GetByAccountAndUID(ctx, f.account.ID, 8)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.Importance)
	assert.Nil(t, stored.Priority)
}

func TestSyncMessages_InvalidAdvisoryValuesDropped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	msg := plainMessage(7, "seven")
	msg.Headers = map[string][]string{"Importance": {"urgent"}, "X-Priority": {"9"}}
	f.inbox.Items = []*imaptest.Message{msg}

	synced, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Nil(t, synced[0].Importance)
	assert.Nil(t, synced[0].Priority)
}

func TestSyncMessages_Limit(t *testing.T) {
	f := newFixture(t, Config{})
	f.inbox.Items = []*imaptest.Message{plainMessage(1, "a"), plainMessage(2, "b"), plainMessage(3, "c")}

	synced, err := f.svc.SyncMessages(context.Background(), f.account, "INBOX", 2)
	require.NoError(t, err)
	require.Len(t, synced, 2)
	assert.Equal(t, uint32(1), synced[0].RemoteUID)
	assert.Equal(t, uint32(2), synced[1].RemoteUID)
}

func TestSyncMessages_ConnectFailureRecordedOnAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.inbox.Items = []*imaptest.Message{plainMessage(1, "a")}
	f.dialer.ConnectErr = errors.New("authentication failed")

	synced, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.Error(t, err)
	assert.Nil(t, synced)
	assert.True(t, errors.Is(err, mserrors.ErrConnectionFailed))

	reloaded, err := f.repos.AccountRepository.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastConnectionError)
	assert.Contains(t, *reloaded.LastConnectionError, "authentication failed")
	assert.Nil(t, reloaded.LastSyncedAt)

	count, err := f.repos.MessageRepository.CountByAccount(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSyncMessages_UnknownFolder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	_, err := f.svc.SyncMessages(ctx, f.account, "Nope", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope")
	assert.Equal(t, 1, f.dialer.DisconnectCount())

	reloaded, err := f.repos.AccountRepository.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.LastSyncedAt)
}

func TestSyncMessages_CancelledContext(t *testing.T) {
	f := newFixture(t, Config{})
	f.inbox.Items = []*imaptest.Message{plainMessage(1, "a")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, f.dialer.DisconnectCount())

	reloaded, err := f.repos.AccountRepository.GetByID(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.LastSyncedAt, "a cancelled run is not a completed sync")
}

func TestSyncMessages_CaptureRawBody(t *testing.T) {
	f := newFixture(t, Config{CaptureRawBody: true})
	f.inbox.Items = []*imaptest.Message{budgetReply()}

	synced, err := f.svc.SyncMessages(context.Background(), f.account, "INBOX", 0)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	require.NotNil(t, synced[0].RawBody)
	assert.Contains(t, *synced[0].RawBody, "Numbers attached.")
}

func TestGetFolders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	folders, err := f.svc.GetFolders(ctx, f.account)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "INBOX", folders[0].Name)
	assert.Equal(t, 1, f.dialer.DisconnectCount())

	f.dialer.ConnectErr = errors.New("refused")
	_, err = f.svc.GetFolders(ctx, f.account)
	assert.True(t, errors.Is(err, mserrors.ErrConnectionFailed))

	reloaded, err := f.repos.AccountRepository.GetByID(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.LastConnectionError)
}

func TestGetMessageCount(t *testing.T) {
	f := newFixture(t, Config{})
	f.inbox.Items = []*imaptest.Message{plainMessage(1, "a"), plainMessage(2, "b"), plainMessage(3, "c")}
	f.inbox.Unseen = 1

	count, err := f.svc.GetMessageCount(context.Background(), f.account, "")
	require.NoError(t, err)
	assert.Equal(t, &dto.MessageCount{Total: 3, Unread: 1, Read: 2}, count)
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	older := plainMessage(1, "older")
	older.Sent = sentAt.Add(-time.Hour)
	f.inbox.Items = []*imaptest.Message{older, plainMessage(2, "newer")}

	_, err := f.svc.SyncMessages(ctx, f.account, "INBOX", 0)
	require.NoError(t, err)

	messages, err := f.svc.ListMessages(ctx, f.account.ID, dto.MessageFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "newer", messages[0].Subject)
}

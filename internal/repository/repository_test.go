package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/testutil"
	"github.com/customeros/mailsync/internal/utils"
)

func newAccount(email string) *models.Account {
	return &models.Account{
		Name:         "Support",
		EmailAddress: email,
		Host:         "mail.example.com",
		Port:         993,
		Encryption:   enum.EmailSecuritySSL,
		Username:     email,
		Password:     "secret",
		IsActive:     true,
	}
}

func TestAccountRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewTestRepositories(t)
	accounts := repos.AccountRepository

	account := newAccount("support@example.com")
	require.NoError(t, accounts.Create(ctx, account))
	assert.Contains(t, account.ID, "macc_")

	got, err := accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "support@example.com", got.EmailAddress)
	assert.Nil(t, got.LastConnectionError)

	missing, err := accounts.GetByID(ctx, "macc_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byEmail, err := accounts.GetByEmailAddress(ctx, "support@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, account.ID, byEmail.ID)

	failedAt := time.Now().UTC()
	require.NoError(t, accounts.Update(ctx, account.ID, map[string]interface{}{
		"last_connection_error":     "Connection failed",
		"last_connection_failed_at": failedAt,
		"is_active":                 false,
	}))
	got, err = accounts.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastConnectionError)
	assert.Equal(t, "Connection failed", *got.LastConnectionError)
	assert.False(t, got.IsActive)

	active, err := accounts.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := accounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, accounts.Update(ctx, "macc_missing", map[string]interface{}{"name": "x"}), repository.ErrAccountNotFound)

	require.NoError(t, accounts.Delete(ctx, account.ID))
	assert.ErrorIs(t, accounts.Delete(ctx, account.ID), repository.ErrAccountNotFound)
}

func TestAccountRepository_EmailUniqueness(t *testing.T) {
	ctx := context.Background()
	accounts := testutil.NewTestRepositories(t).AccountRepository

	first := newAccount("dup@example.com")
	require.NoError(t, accounts.Create(ctx, first))

	err := accounts.Create(ctx, newAccount("dup@example.com"))
	assert.ErrorIs(t, err, repository.ErrAccountAlreadyExists)

	taken, err := accounts.EmailAddressTaken(ctx, "dup@example.com", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = accounts.EmailAddressTaken(ctx, "dup@example.com", first.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestMessageRepository_UniqueAccountUID(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewTestRepositories(t)

	account := newAccount("uid@example.com")
	require.NoError(t, repos.AccountRepository.Create(ctx, account))

	msg := &models.Message{AccountID: account.ID, RemoteUID: 500, Subject: "Re: Budget", Flags: []string{`\Seen`, "$Label1"}}
	require.NoError(t, repos.MessageRepository.Create(ctx, msg))
	assert.Contains(t, msg.ID, "mmsg_")

	err := repos.MessageRepository.Create(ctx, &models.Message{AccountID: account.ID, RemoteUID: 500})
	assert.ErrorIs(t, err, repository.ErrMessageAlreadyExists)

	got, err := repos.MessageRepository.GetByAccountAndUID(ctx, account.ID, 500)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, []string{`\Seen`, "$Label1"}, []string(got.Flags))

	none, err := repos.MessageRepository.GetByAccountAndUID(ctx, account.ID, 501)
	require.NoError(t, err)
	assert.Nil(t, none)

	count, err := repos.MessageRepository.CountByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMessageRepository_CascadeDelete(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewTestRepositories(t)

	account := newAccount("cascade@example.com")
	require.NoError(t, repos.AccountRepository.Create(ctx, account))
	for uid := uint32(1); uid <= 3; uid++ {
		require.NoError(t, repos.MessageRepository.Create(ctx, &models.Message{AccountID: account.ID, RemoteUID: uid}))
	}

	require.NoError(t, repos.AccountRepository.Delete(ctx, account.ID))

	count, err := repos.MessageRepository.CountByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMessageRepository_UpdateAndList(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewTestRepositories(t)

	account := newAccount("list@example.com")
	require.NoError(t, repos.AccountRepository.Create(ctx, account))

	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	m1 := &models.Message{AccountID: account.ID, RemoteUID: 1, SentAt: &older}
	m2 := &models.Message{AccountID: account.ID, RemoteUID: 2, SentAt: &newer}
	require.NoError(t, repos.MessageRepository.Create(ctx, m1))
	require.NoError(t, repos.MessageRepository.Create(ctx, m2))

	require.NoError(t, repos.MessageRepository.Update(ctx, m1.ID, map[string]interface{}{"is_seen": true, "last_sync_error": nil}))
	got, err := repos.MessageRepository.GetByID(ctx, m1.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSeen)

	assert.ErrorIs(t, repos.MessageRepository.Update(ctx, "mmsg_missing", map[string]interface{}{"is_seen": true}), repository.ErrMessageNotFound)

	list, err := repos.MessageRepository.ListByAccount(ctx, account.ID, dto.MessageFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint32(2), list[0].RemoteUID)

	page, err := repos.MessageRepository.ListByAccount(ctx, account.ID, dto.MessageFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint32(1), page[0].RemoteUID)
}

func TestMessageRepository_ListByAccountFilters(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewTestRepositories(t)

	account := newAccount("filters@example.com")
	require.NoError(t, repos.AccountRepository.Create(ctx, account))
	other := newAccount("other@example.com")
	require.NoError(t, repos.AccountRepository.Create(ctx, other))

	require.NoError(t, repos.MessageRepository.Create(ctx, &models.Message{AccountID: account.ID, RemoteUID: 1, Subject: "unread"}))
	require.NoError(t, repos.MessageRepository.Create(ctx, &models.Message{AccountID: account.ID, RemoteUID: 2, Subject: "read", IsSeen: true}))
	require.NoError(t, repos.MessageRepository.Create(ctx, &models.Message{AccountID: account.ID, RemoteUID: 3, Subject: "read flagged", IsSeen: true, IsFlagged: true}))
	require.NoError(t, repos.MessageRepository.Create(ctx, &models.Message{AccountID: other.ID, RemoteUID: 4, Subject: "elsewhere", IsFlagged: true}))

	subjects := func(filter dto.MessageFilter) []string {
		list, err := repos.MessageRepository.ListByAccount(ctx, account.ID, filter)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, m := range list {
			out = append(out, m.Subject)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   dto.MessageFilter
		expected []string
	}{
		{name: "all", filter: dto.MessageFilter{}, expected: []string{"unread", "read", "read flagged"}},
		{name: "unread", filter: dto.MessageFilter{Seen: utils.Ptr(false)}, expected: []string{"unread"}},
		{name: "read", filter: dto.MessageFilter{Seen: utils.Ptr(true)}, expected: []string{"read", "read flagged"}},
		{name: "flagged", filter: dto.MessageFilter{Flagged: utils.Ptr(true)}, expected: []string{"read flagged"}},
		{name: "read not flagged", filter: dto.MessageFilter{Seen: utils.Ptr(true), Flagged: utils.Ptr(false)}, expected: []string{"read"}},
		{name: "unread flagged", filter: dto.MessageFilter{Seen: utils.Ptr(false), Flagged: utils.Ptr(true)}, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.expected, subjects(tt.filter))
		})
	}
}

package account

import (
	"context"
	"strings"
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

type Option func(*accountService)

// WithClock overrides the time source used for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *accountService) {
		s.now = now
	}
}

type accountService struct {
	repositories *repository.Repositories
	dialer       interfaces.IMAPDialer
	log          logger.Logger
	now          func() time.Time
}

func NewAccountService(repos *repository.Repositories, dialer interfaces.IMAPDialer, log logger.Logger, opts ...Option) interfaces.AccountService {
	s := &accountService{
		repositories: repos,
		dialer:       dialer,
		log:          log,
		now:          utils.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Probe opens a session, lists folders and closes it again.
func (s *accountService) Probe(ctx context.Context, params dto.ConnectionParams) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountService.Probe")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("server", params.Host)

	session, err := s.dialer.Connect(ctx, params)
	if err != nil {
		tracing.TraceErr(span, err)
		return mserrors.NewConnectionError(err)
	}

	if _, err = session.ListFolders(ctx); err != nil {
		if derr := session.Disconnect(); derr != nil {
			s.log.Warnw("Disconnect after failed probe", "server", params.Host, "error", derr.Error())
		}
		tracing.TraceErr(span, err)
		return mserrors.NewConnectionError(err)
	}

	if err = session.Disconnect(); err != nil {
		s.log.Warnw("Disconnect after probe", "server", params.Host, "error", err.Error())
	}
	return nil
}

// Open connects with the account's stored parameters.
func (s *accountService) Open(ctx context.Context, account *models.Account) (interfaces.IMAPSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountService.Open")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.ID)

	session, err := s.dialer.Connect(ctx, ConnectionParamsFor(account))
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, mserrors.NewConnectionError(err)
	}
	return session, nil
}

func (s *accountService) CreateAccount(ctx context.Context, input dto.CreateAccountInput) (*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountService.CreateAccount")
	defer span.Finish()
	tracing.TagComponentService(span)

	if err := s.validateCreate(ctx, &input); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	encryption, _ := enum.ParseEmailSecurity(input.Encryption)
	account := &models.Account{
		Name:         strings.TrimSpace(input.Name),
		EmailAddress: input.EmailAddress,
		Host:         strings.TrimSpace(input.Host),
		Port:         input.Port,
		Encryption:   encryption,
		Username:     input.Username,
		Password:     input.Password,
		IsActive:     utils.GetOrDefault(input.IsActive, true),
	}

	if err := s.Probe(ctx, ConnectionParamsFor(account)); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := s.repositories.AccountRepository.Create(ctx, account); err != nil {
		tracing.TraceErr(span, err)
		if errors.Is(err, repository.ErrAccountAlreadyExists) {
			verr := mserrors.NewValidationError()
			verr.Add("email_address", "has already been taken")
			return nil, verr
		}
		return nil, err
	}
	tracing.TagAccount(span, account.ID)

	s.log.Infow("Account created", "account_id", account.ID, "email", account.EmailAddress)
	return account, nil
}

// UpdateAccount validates, probes the merged parameters and only then commits.
func (s *accountService) UpdateAccount(ctx context.Context, existing *models.Account, input dto.UpdateAccountInput) (*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountService.UpdateAccount")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, existing.ID)

	if err := s.validateUpdate(ctx, existing.ID, &input); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	params := MergeConnectionParams(existing, input)
	if err := s.Probe(ctx, params); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	updates := updateColumns(input)
	updates["last_connection_error"] = nil
	updates["last_connection_failed_at"] = nil

	if err := s.repositories.AccountRepository.Update(ctx, existing.ID, updates); err != nil {
		tracing.TraceErr(span, err)
		if errors.Is(err, repository.ErrAccountAlreadyExists) {
			verr := mserrors.NewValidationError()
			verr.Add("email_address", "has already been taken")
			return nil, verr
		}
		return nil, err
	}

	return s.GetAccount(ctx, existing.ID)
}

// TestExistingConnection reports health as a boolean and persists the outcome.
// Persistence failures are logged, never returned.
func (s *accountService) TestExistingConnection(ctx context.Context, account *models.Account) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountService.TestExistingConnection")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.ID)

	err := s.Probe(ctx, ConnectionParamsFor(account))
	if err != nil {
		span.SetTag("healthy", false)
		if rerr := s.RecordConnectionFailure(ctx, account, err); rerr != nil {
			s.log.Errorw("Failed to record connection failure", "account_id", account.ID, "error", rerr.Error())
		}
		return false
	}

	span.SetTag("healthy", true)
	if rerr := s.RecordConnectionSuccess(ctx, account); rerr != nil {
		s.log.Errorw("Failed to record connection success", "account_id", account.ID, "error", rerr.Error())
	}
	return true
}

func (s *accountService) RecordConnectionSuccess(ctx context.Context, account *models.Account) error {
	err := s.repositories.AccountRepository.Update(ctx, account.ID, map[string]interface{}{
		"last_connection_error":     nil,
		"last_connection_failed_at": nil,
	})
	if err != nil {
		return err
	}
	account.LastConnectionError = nil
	account.LastConnectionFailedAt = nil
	return nil
}

func (s *accountService) RecordConnectionFailure(ctx context.Context, account *models.Account, cause error) error {
	failedAt := s.now()
	message := "unknown connection error"
	if cause != nil {
		message = cause.Error()
	}

	err := s.repositories.AccountRepository.Update(ctx, account.ID, map[string]interface{}{
		"last_connection_error":     message,
		"last_connection_failed_at": failedAt,
	})
	if err != nil {
		return err
	}
	account.LastConnectionError = &message
	account.LastConnectionFailedAt = &failedAt

	s.log.Warnw("Connection failure recorded", "account_id", account.ID, "error", message)
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.repositories.AccountRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, mserrors.ErrAccountNotFound
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.repositories.AccountRepository.List(ctx)
}

func (s *accountService) ListActiveAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.repositories.AccountRepository.ListActive(ctx)
}

// DeleteAccount removes the account; its messages go with it.
func (s *accountService) DeleteAccount(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountService.DeleteAccount")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, id)

	if err := s.repositories.AccountRepository.Delete(ctx, id); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	s.log.Infow("Account deleted", "account_id", id)
	return nil
}

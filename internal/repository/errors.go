package repository

import (
	"github.com/pkg/errors"

	mserrors "github.com/customeros/mailsync/internal/errors"
)

var (
	ErrAccountNotFound      = mserrors.ErrAccountNotFound
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrMessageNotFound      = errors.New("message not found")
	ErrMessageAlreadyExists = errors.New("message already exists for account and uid")
	ErrInvalidInput         = errors.New("invalid input parameters")
)

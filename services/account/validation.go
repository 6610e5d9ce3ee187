package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"golang.org/x/net/idna"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	mserrors "github.com/customeros/mailsync/internal/errors"
)

const (
	maxFieldLength = 255
	minPort        = 1
	maxPort        = 65535
)

// validator checks field rules. Uniqueness of the email address is checked
// separately because it needs the repository.
type validator struct {
	errs *mserrors.ValidationError
}

func newValidator() *validator {
	return &validator{errs: mserrors.NewValidationError()}
}

func (v *validator) requiredString(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.errs.Add(field, "is required")
		return false
	}
	if len([]rune(value)) > maxFieldLength {
		v.errs.Add(field, fmt.Sprintf("must not be longer than %d characters", maxFieldLength))
		return false
	}
	return true
}

// email validates syntax and returns the cleaned address.
func (v *validator) email(value string) (string, bool) {
	if !v.requiredString("email_address", value) {
		return "", false
	}
	validation := mailvalidate.ValidateEmailSyntax(strings.TrimSpace(value))
	if !validation.IsValid {
		v.errs.Add("email_address", "must be a valid email address")
		return "", false
	}
	if validation.CleanEmail != "" {
		return validation.CleanEmail, true
	}
	return strings.TrimSpace(value), true
}

func (v *validator) host(value string) {
	if !v.requiredString("host", value) {
		return
	}
	if _, err := idna.Lookup.ToASCII(strings.TrimSpace(value)); err != nil {
		v.errs.Add("host", "must be a valid hostname")
	}
}

func (v *validator) port(value int) {
	if value < minPort || value > maxPort {
		v.errs.Add("port", fmt.Sprintf("must be between %d and %d", minPort, maxPort))
	}
}

// encryption accepts only the exact lowercase names.
func (v *validator) encryption(value string) {
	if !enum.EmailSecurity(value).IsValid() {
		v.errs.Add("encryption", "must be one of "+strings.Join(enum.EmailSecurityValues(), ", "))
	}
}

// password is stored as given, but blank is not a password.
func (v *validator) password(value string) {
	if strings.TrimSpace(value) == "" {
		v.errs.Add("password", "is required")
	}
}

func (v *validator) result() error {
	if v.errs.HasErrors() {
		return v.errs
	}
	return nil
}

func (s *accountService) validateCreate(ctx context.Context, input *dto.CreateAccountInput) error {
	v := newValidator()

	v.requiredString("name", input.Name)
	if clean, ok := v.email(input.EmailAddress); ok {
		input.EmailAddress = clean
		if err := s.checkEmailAvailable(ctx, v, clean, ""); err != nil {
			return err
		}
	}
	v.host(input.Host)
	v.port(input.Port)
	v.encryption(input.Encryption)
	v.requiredString("username", input.Username)
	v.password(input.Password)

	return v.result()
}

func (s *accountService) validateUpdate(ctx context.Context, existingID string, input *dto.UpdateAccountInput) error {
	v := newValidator()

	if input.Name != nil {
		v.requiredString("name", *input.Name)
	}
	if input.EmailAddress != nil {
		if clean, ok := v.email(*input.EmailAddress); ok {
			input.EmailAddress = &clean
			if err := s.checkEmailAvailable(ctx, v, clean, existingID); err != nil {
				return err
			}
		}
	}
	if input.Host != nil {
		v.host(*input.Host)
	}
	if input.Port != nil {
		v.port(*input.Port)
	}
	if input.Encryption != nil {
		v.encryption(*input.Encryption)
	}
	if input.Username != nil {
		v.requiredString("username", *input.Username)
	}
	if input.Password != nil {
		v.password(*input.Password)
	}

	return v.result()
}

func (s *accountService) checkEmailAvailable(ctx context.Context, v *validator, email, excludeID string) error {
	taken, err := s.repositories.AccountRepository.EmailAddressTaken(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		v.errs.Add("email_address", "has already been taken")
	}
	return nil
}

package account

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/models"
)

// ConnectionParamsFor builds transport parameters from a stored account.
func ConnectionParamsFor(account *models.Account) dto.ConnectionParams {
	return dto.ConnectionParams{
		Host:         asciiHost(account.Host),
		Port:         account.Port,
		Encryption:   account.Encryption,
		Username:     account.Username,
		Password:     account.Password,
		ValidateCert: true,
	}
}

// MergeConnectionParams overlays the connection fields of a partial update
// on the account's current values. It does not touch the account.
func MergeConnectionParams(existing *models.Account, input dto.UpdateAccountInput) dto.ConnectionParams {
	params := ConnectionParamsFor(existing)

	if input.Host != nil {
		params.Host = asciiHost(*input.Host)
	}
	if input.Port != nil {
		params.Port = *input.Port
	}
	if input.Encryption != nil {
		if enc, ok := enum.ParseEmailSecurity(*input.Encryption); ok {
			params.Encryption = enc
		}
	}
	if input.Username != nil {
		params.Username = *input.Username
	}
	if input.Password != nil {
		params.Password = *input.Password
	}
	return params
}

// updateColumns maps the provided fields of a partial update to columns.
func updateColumns(input dto.UpdateAccountInput) map[string]interface{} {
	updates := make(map[string]interface{})
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.EmailAddress != nil {
		updates["email_address"] = *input.EmailAddress
	}
	if input.Host != nil {
		updates["host"] = strings.TrimSpace(*input.Host)
	}
	if input.Port != nil {
		updates["port"] = *input.Port
	}
	if input.Encryption != nil {
		enc, _ := enum.ParseEmailSecurity(*input.Encryption)
		updates["encryption"] = enc
	}
	if input.Username != nil {
		updates["username"] = *input.Username
	}
	if input.Password != nil {
		updates["password"] = *input.Password
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	return updates
}

func asciiHost(host string) string {
	host = strings.TrimSpace(host)
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/utils"
)

// Account is one remote IMAP mailbox and its connection health.
type Account struct {
	ID           string             `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Name         string             `gorm:"column:name;type:varchar(255);not null" json:"name"`
	EmailAddress string             `gorm:"column:email_address;type:varchar(255);uniqueIndex;not null" json:"emailAddress"`
	Host         string             `gorm:"column:host;type:varchar(255);not null" json:"host"`
	Port         int                `gorm:"column:port;not null" json:"port"`
	Encryption   enum.EmailSecurity `gorm:"column:encryption;type:varchar(20);not null" json:"encryption"`
	Username     string             `gorm:"column:username;type:varchar(255);not null" json:"username"`
	Password     string             `gorm:"column:password;type:text;not null" json:"-"`
	IsActive     bool               `gorm:"column:is_active;not null;index" json:"isActive"`
	// Health
	LastSyncedAt           *time.Time `gorm:"column:last_synced_at;type:timestamp" json:"lastSyncedAt"`
	LastConnectionError    *string    `gorm:"column:last_connection_error;type:text" json:"lastConnectionError"`
	LastConnectionFailedAt *time.Time `gorm:"column:last_connection_failed_at;type:timestamp" json:"lastConnectionFailedAt"`
	// Standard timestamps
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Account) TableName() string {
	return "mail_accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIdWithPrefix("macc", 16)
	}
	return nil
}

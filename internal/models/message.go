package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/internal/utils"
)

// Message is the local projection of one remote mailbox entry.
// (account_id, remote_uid) is the only reconciliation key.
type Message struct {
	ID          string   `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID   string   `gorm:"column:account_id;type:varchar(50);not null;uniqueIndex:idx_mail_messages_account_uid,priority:1" json:"accountId"`
	Account     *Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	RemoteUID   uint32   `gorm:"column:remote_uid;not null;uniqueIndex:idx_mail_messages_account_uid,priority:2" json:"remoteUid"`
	RemoteMsgNo uint32   `gorm:"column:remote_msgno" json:"remoteMsgNo"`

	// Headers
	MessageID    string     `gorm:"column:message_id;type:varchar(998);index" json:"messageId"`
	Subject      string     `gorm:"column:subject;type:text" json:"subject"`
	SentAt       *time.Time `gorm:"column:sent_at;type:timestamp;index" json:"sentAt"`
	ReceivedAt   *time.Time `gorm:"column:received_at;type:timestamp" json:"receivedAt"`
	Size         uint32     `gorm:"column:size" json:"size"`
	Importance   *int       `gorm:"column:importance" json:"importance"`
	Priority     *int       `gorm:"column:priority" json:"priority"`
	FromEmail    string     `gorm:"column:from_email;type:varchar(255);index" json:"fromEmail"`
	FromName     string     `gorm:"column:from_name;type:varchar(255)" json:"fromName"`
	ReplyToEmail string     `gorm:"column:reply_to_email;type:varchar(255)" json:"replyToEmail"`
	ReplyToName  string     `gorm:"column:reply_to_name;type:varchar(255)" json:"replyToName"`
	InReplyTo    string     `gorm:"column:in_reply_to;type:varchar(998)" json:"inReplyTo"`
	References   string     `gorm:"column:references;type:text" json:"references"`
	ThreadHash   *string    `gorm:"column:thread_hash;type:varchar(64);index" json:"threadHash"`

	// Content
	BodyText    string  `gorm:"column:body_text;type:text" json:"bodyText"`
	BodyHTML    string  `gorm:"column:body_html;type:text" json:"bodyHtml"`
	BodyPreview *string `gorm:"column:body_preview;type:varchar(1024)" json:"bodyPreview"`
	RawBody     *string `gorm:"column:raw_body;type:text" json:"-"`
	RawHeaders  string  `gorm:"column:raw_headers;type:text" json:"rawHeaders"`

	// Flags
	IsSeen     bool           `gorm:"column:is_seen;not null" json:"isSeen"`
	IsAnswered bool           `gorm:"column:is_answered;not null" json:"isAnswered"`
	IsFlagged  bool           `gorm:"column:is_flagged;not null" json:"isFlagged"`
	IsDeleted  bool           `gorm:"column:is_deleted;not null" json:"isDeleted"`
	IsDraft    bool           `gorm:"column:is_draft;not null" json:"isDraft"`
	IsRecent   bool           `gorm:"column:is_recent;not null" json:"isRecent"`
	Flags      pq.StringArray `gorm:"column:flags;type:text[]" json:"flags"`

	// Sync state
	SyncedAt      *time.Time `gorm:"column:synced_at;type:timestamp" json:"syncedAt"`
	Checksum      string     `gorm:"column:checksum;type:varchar(64);index" json:"checksum"`
	LastSyncError *string    `gorm:"column:last_sync_error;type:text" json:"lastSyncError"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (Message) TableName() string {
	return "mail_messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIdWithPrefix("mmsg", 24)
	}
	return nil
}

// AllModels lists every table owned by the service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Account{},
		&Message{},
	}
}

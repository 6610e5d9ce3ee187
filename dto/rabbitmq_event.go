package dto

import "github.com/customeros/mailsync/internal/enum"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

const (
	EventAccountCreated    = "mailsync.account.created"
	EventSyncCompleted     = "mailsync.sync.completed"
	EventSyncFailed        = "mailsync.sync.failed"
	EventConnectionChecked = "mailsync.connection.checked"
)

type SyncCompletedData struct {
	AccountID    string `json:"accountId"`
	Folder       string `json:"folder"`
	Synced       int    `json:"synced"`
	LastSyncedAt string `json:"lastSyncedAt"`
}

type SyncFailedData struct {
	AccountID string `json:"accountId"`
	Folder    string `json:"folder"`
	Error     string `json:"error"`
}

type ConnectionCheckedData struct {
	AccountID string `json:"accountId"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
}

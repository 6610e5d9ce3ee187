package dto

import "github.com/customeros/mailsync/internal/enum"

// ConnectionParams is everything the transport needs to open a session.
type ConnectionParams struct {
	Host         string
	Port         int
	Encryption   enum.EmailSecurity
	Username     string
	Password     string
	ValidateCert bool
}

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Folder struct {
	Name        string `json:"name"`
	FullName    string `json:"fullName"`
	Delimiter   string `json:"delimiter"`
	HasChildren bool   `json:"hasChildren"`
}

type MessageCount struct {
	Total  uint32 `json:"total"`
	Unread uint32 `json:"unread"`
	Read   uint32 `json:"read"`
}

// MessageFilter narrows a stored-message listing. Nil fields match any
// value; a non-positive Limit means no cap.
type MessageFilter struct {
	Seen    *bool
	Flagged *bool
	Limit   int
	Offset  int
}

package dto

// CreateAccountInput is the payload for creating an account.
// IsActive defaults to true when omitted.
type CreateAccountInput struct {
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Encryption   string `json:"encryption"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	IsActive     *bool  `json:"isActive"`
}

// UpdateAccountInput carries only the fields being changed.
type UpdateAccountInput struct {
	Name         *string `json:"name"`
	EmailAddress *string `json:"emailAddress"`
	Host         *string `json:"host"`
	Port         *int    `json:"port"`
	Encryption   *string `json:"encryption"`
	Username     *string `json:"username"`
	Password     *string `json:"password"`
	IsActive     *bool   `json:"isActive"`
}

func (in UpdateAccountInput) IsEmpty() bool {
	return in.Name == nil && in.EmailAddress == nil && in.Host == nil && in.Port == nil &&
		in.Encryption == nil && in.Username == nil && in.Password == nil && in.IsActive == nil
}

package enum

type EntityType string

const (
	MAIL_ACCOUNT EntityType = "MAIL_ACCOUNT"
)

func (entityType EntityType) String() string {
	return string(entityType)
}

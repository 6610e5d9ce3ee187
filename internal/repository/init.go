package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/database"
	"github.com/customeros/mailsync/internal/models"
)

type Repositories struct {
	AccountRepository interfaces.AccountRepository
	MessageRepository interfaces.MessageRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		AccountRepository: NewAccountRepository(db),
		MessageRepository: NewMessageRepository(db),
	}
}

// MigrateMailsyncDB runs the schema migration on a narrowed pool, then restores the configured pool limits.
func MigrateMailsyncDB(dbConfig *database.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(models.AllModels()...)

	if dbConfig != nil {
		if dbConfig.MaxIdleConn > 0 {
			sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
		}
		if dbConfig.MaxConn > 0 {
			sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
		}
		if dbConfig.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)
		}
	}

	return err
}

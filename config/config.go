package config

import (
	"time"

	"github.com/customeros/mailsync/internal/database"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"12222"`
	APIKey      string `env:"API_KEY"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type MailsyncDatabaseConfig struct {
	Host            string `env:"MAILSYNC_POSTGRES_HOST,required"`
	Port            string `env:"MAILSYNC_POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"MAILSYNC_POSTGRES_USER,required"`
	DBName          string `env:"MAILSYNC_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILSYNC_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILSYNC_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"MAILSYNC_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"MAILSYNC_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"MAILSYNC_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILSYNC_POSTGRES_SSL_MODE" envDefault:"disable"`
}

func (c *MailsyncDatabaseConfig) ToDatabaseConfig() *database.DatabaseConfig {
	return &database.DatabaseConfig{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		DBName:          c.DBName,
		Password:        c.Password,
		MaxConn:         c.MaxConn,
		MaxIdleConn:     c.MaxIdleConn,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogLevel:        c.LogLevel,
		SSLMode:         c.SSLMode,
	}
}

type SyncConfig struct {
	DefaultFolder  string        `env:"MAILSYNC_DEFAULT_FOLDER" envDefault:"INBOX"`
	SyncLimit      int           `env:"MAILSYNC_SYNC_LIMIT" envDefault:"0"`
	CaptureRawBody bool          `env:"MAILSYNC_CAPTURE_RAW_BODY" envDefault:"false"`
	LockBackend    string        `env:"MAILSYNC_LOCK_BACKEND" envDefault:"memory"`
	LockTTL        time.Duration `env:"MAILSYNC_LOCK_TTL" envDefault:"30m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

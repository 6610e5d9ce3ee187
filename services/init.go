package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/locks"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/services/account"
	"github.com/customeros/mailsync/services/events"
	"github.com/customeros/mailsync/services/imap"
	"github.com/customeros/mailsync/services/message"
	"github.com/customeros/mailsync/services/syncjob"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Services struct {
	EventsService  *events.EventsService
	AccountService interfaces.AccountService
	MessageService interfaces.MessageService
	SyncJobService interfaces.SyncJobService
	Locker         interfaces.AccountLocker

	redisClient *redis.Client
}

// InitServices wires the production dependencies: the IMAP dialer, the
// RabbitMQ publisher and the configured lock backend.
func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig())
	if err != nil {
		return nil, err
	}

	var (
		locker      interfaces.AccountLocker
		redisClient *redis.Client
	)
	switch cfg.SyncConfig.LockBackend {
	case LockBackendRedis:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			eventsService.Close()
			return nil, errors.Wrap(err, "failed to connect to redis")
		}
		locker = locks.NewRedisLocker(redisClient, cfg.SyncConfig.LockTTL, log)
	case LockBackendMemory, "":
		locker = locks.NewMemoryLocker()
	default:
		eventsService.Close()
		return nil, errors.Errorf("unknown lock backend %q", cfg.SyncConfig.LockBackend)
	}

	svcs := NewServices(repos, imap.NewDialer(log), eventsService, locker, log, *cfg.SyncConfig)
	svcs.redisClient = redisClient
	return svcs, nil
}

// NewServices assembles the service graph from already constructed parts.
func NewServices(repos *repository.Repositories, dialer interfaces.IMAPDialer, eventsService *events.EventsService, locker interfaces.AccountLocker, log logger.Logger, syncCfg config.SyncConfig) *Services {
	accounts := account.NewAccountService(repos, dialer, log)
	messages := message.NewMessageService(repos, accounts, log, message.Config{
		DefaultFolder:  syncCfg.DefaultFolder,
		CaptureRawBody: syncCfg.CaptureRawBody,
	})
	jobs := syncjob.NewSyncJobService(accounts, messages, locker, eventsService.Publisher, log, syncjob.Config{
		DefaultFolder: syncCfg.DefaultFolder,
		SyncLimit:     syncCfg.SyncLimit,
	})

	return &Services{
		EventsService:  eventsService,
		AccountService: accounts,
		MessageService: messages,
		SyncJobService: jobs,
		Locker:         locker,
	}
}

func (s *Services) Close() error {
	var errs []error
	if s.EventsService != nil {
		if err := s.EventsService.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("errors closing services: %v", errs)
	}
	return nil
}

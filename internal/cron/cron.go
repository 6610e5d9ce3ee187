package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/customeros/mailsync/interfaces"
	cron_config "github.com/customeros/mailsync/internal/cron/config"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	JobCheckConnections = "check_connections"
	JobSyncAccounts     = "sync_accounts"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

type CronManager struct {
	cfg      cron_config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	jobs     interfaces.SyncJobService
	// a sync and a health check never probe the same servers at once
	jobLock sync.Mutex
}

func NewCronManager(cfg cron_config.Config, log logger.Logger, k8s kubernetes.Interface, jobs interfaces.SyncJobService) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		k8s:    k8s,
		stopCh: make(chan struct{}),
		jobIDs: make(map[string]cronv3.EntryID),
		jobs:   jobs,
	}
}

// Start runs the scheduler under leader election so only one replica fires
// jobs. Without a k8s client it starts in local mode.
func (cm *CronManager) Start() error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		return cm.StartCron()
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      cm.cfg.LockName,
			Namespace: cm.cfg.PodNamespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: cm.cfg.PodName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					if err := cm.StartCron(); err != nil {
						cm.log.Errorf("Failed to start crons: %v", err)
					}
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-cm.stopCh
			cancel()
		}()
		le.Run(ctx)
	}()

	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		return cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			// Wait for jobs to finish
			<-ctx.Done()
		}
		close(cm.stopCh)
	})
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	if cm.cfg.CronScheduleCheckConnections != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleCheckConnections, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.jobLock.Lock()
			defer cm.jobLock.Unlock()
			cm.checkActiveConnections()
		})
		if err != nil {
			return errors.Wrap(err, "could not add connection check cron job")
		}
		cm.jobIDs[JobCheckConnections] = id
		cm.log.Infof("Registered connection check job with schedule: %s", cm.cfg.CronScheduleCheckConnections)
	}

	if cm.cfg.CronScheduleSyncAccounts != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleSyncAccounts, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.jobLock.Lock()
			defer cm.jobLock.Unlock()
			cm.syncActiveAccounts()
		})
		if err != nil {
			return errors.Wrap(err, "could not add account sync cron job")
		}
		cm.jobIDs[JobSyncAccounts] = id
		cm.log.Infof("Registered account sync job with schedule: %s", cm.cfg.CronScheduleSyncAccounts)
	}

	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	if err := cm.registerJobs(c); err != nil {
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

func (cm *CronManager) checkActiveConnections() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "CronManager.checkActiveConnections")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	if err := cm.jobs.CheckActiveConnections(ctx); err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to check account connections: %v", err)
	}
}

func (cm *CronManager) syncActiveAccounts() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "CronManager.syncActiveAccounts")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	if err := cm.jobs.SyncActiveAccounts(ctx); err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to sync active accounts: %v", err)
	}
}

package cron_config

type Config struct {
	// Connection health check, every 5 minutes
	CronScheduleCheckConnections string `env:"CRON_SCHEDULE_CHECK_CONNECTIONS" envDefault:"0 */5 * * * *"`
	// Active account sync, every 15 minutes
	CronScheduleSyncAccounts string `env:"CRON_SCHEDULE_SYNC_ACCOUNTS" envDefault:"0 */15 * * * *"`
	// Leader election lease name
	LockName     string `env:"CRON_LOCK_NAME" envDefault:"mailsync-cron-leader"`
	PodNamespace string `env:"POD_NAMESPACE" envDefault:"default"`
	PodName      string `env:"POD_NAME" envDefault:"local"`
}

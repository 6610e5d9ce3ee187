package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/internal/database"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/server"
	"github.com/customeros/mailsync/services"
)

type app struct {
	cfg *config.Config
	log logger.Logger
	db  *gorm.DB
}

func main() {
	a := &app{}

	accountFlag := &cli.StringFlag{Name: "account", Aliases: []string{"a"}, Usage: "account id", Required: true}
	folderFlag := &cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "folder name, defaults to MAILSYNC_DEFAULT_FOLDER"}

	cliApp := &cli.App{
		Name:   "mailsync",
		Usage:  "synchronize IMAP mailboxes into postgres",
		Before: a.setup,
		After:  a.teardown,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: a.migrate,
			},
			{
				Name:   "server",
				Usage:  "Start the API server and scheduled jobs",
				Action: a.serve,
			},
			{
				Name:  "sync",
				Usage: "Sync one folder of an account",
				Flags: []cli.Flag{
					accountFlag,
					folderFlag,
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "max messages, 0 for all"},
				},
				Action: a.sync,
			},
			{
				Name:   "test-connection",
				Usage:  "Probe an account's stored connection and record the outcome",
				Flags:  []cli.Flag{accountFlag},
				Action: a.testConnection,
			},
			{
				Name:   "folders",
				Usage:  "List the remote folders of an account",
				Flags:  []cli.Flag{accountFlag},
				Action: a.folders,
			},
			{
				Name:   "count",
				Usage:  "Count messages in a remote folder",
				Flags:  []cli.Flag{accountFlag, folderFlag},
				Action: a.count,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("mailsync: %v", err)
	}
}

func (a *app) setup(c *cli.Context) error {
	// help and version need no environment
	switch c.Args().First() {
	case "", "help", "h":
		return nil
	}

	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()
	a.log = appLogger

	db, err := database.InitMailsyncDatabase(cfg.MailsyncDatabaseConfig.ToDatabaseConfig())
	if err != nil {
		return errors.Wrap(err, "mailsync database initialization failed")
	}
	a.db = db
	return nil
}

func (a *app) teardown(c *cli.Context) error {
	if a.log != nil {
		a.log.Sync()
	}
	return nil
}

func (a *app) migrate(c *cli.Context) error {
	if err := repository.MigrateMailsyncDB(a.cfg.MailsyncDatabaseConfig.ToDatabaseConfig(), a.db); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	a.log.Info("Database migration completed successfully")
	return nil
}

func (a *app) serve(c *cli.Context) error {
	a.log.Info("Mailsync starting up...")

	srv, err := server.NewServer(a.cfg, a.log, a.db)
	if err != nil {
		return errors.Wrap(err, "server setup failed")
	}
	if err := srv.Run(); err != nil {
		return errors.Wrap(err, "server startup failed")
	}

	a.log.Info("Shutdown complete")
	return nil
}

// withServices runs fn against a fully wired service graph and closes it
// afterwards.
func (a *app) withServices(fn func(ctx context.Context, s *services.Services) error) error {
	svcs, err := services.InitServices(a.cfg, a.log, repository.InitRepositories(a.db))
	if err != nil {
		return err
	}
	defer svcs.Close()
	return fn(context.Background(), svcs)
}

func (a *app) sync(c *cli.Context) error {
	return a.withServices(func(ctx context.Context, s *services.Services) error {
		account, err := s.AccountService.GetAccount(ctx, c.String("account"))
		if err != nil {
			return err
		}
		messages, err := s.SyncJobService.SyncAccount(ctx, account, c.String("folder"), c.Int("limit"))
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"accountId":    account.ID,
			"synced":       len(messages),
			"lastSyncedAt": account.LastSyncedAt,
		})
	})
}

func (a *app) testConnection(c *cli.Context) error {
	return a.withServices(func(ctx context.Context, s *services.Services) error {
		account, err := s.AccountService.GetAccount(ctx, c.String("account"))
		if err != nil {
			return err
		}
		healthy := s.SyncJobService.CheckConnection(ctx, account)
		if err := printJSON(map[string]interface{}{
			"healthy": healthy,
			"error":   account.LastConnectionError,
		}); err != nil {
			return err
		}
		if !healthy {
			return cli.Exit("connection failed", 2)
		}
		return nil
	})
}

func (a *app) folders(c *cli.Context) error {
	return a.withServices(func(ctx context.Context, s *services.Services) error {
		account, err := s.AccountService.GetAccount(ctx, c.String("account"))
		if err != nil {
			return err
		}
		folders, err := s.MessageService.GetFolders(ctx, account)
		if err != nil {
			return err
		}
		return printJSON(folders)
	})
}

func (a *app) count(c *cli.Context) error {
	return a.withServices(func(ctx context.Context, s *services.Services) error {
		account, err := s.AccountService.GetAccount(ctx, c.String("account"))
		if err != nil {
			return err
		}
		count, err := s.MessageService.GetMessageCount(ctx, account, c.String("folder"))
		if err != nil {
			return err
		}
		return printJSON(count)
	})
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

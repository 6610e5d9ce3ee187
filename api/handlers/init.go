package handlers

import (
	"github.com/customeros/mailsync/services"
)

type APIHandlers struct {
	Accounts *AccountsHandler
	Sync     *SyncHandler
}

func InitHandlers(s *services.Services) *APIHandlers {
	return &APIHandlers{
		Accounts: NewAccountsHandler(s.AccountService, s.SyncJobService, s.EventsService.Publisher),
		Sync:     NewSyncHandler(s.AccountService, s.MessageService, s.SyncJobService),
	}
}

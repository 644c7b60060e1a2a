package service

import (
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/store"
)

// Services groups the server-side application services handed to the HTTP
// layer.
type Services struct {
	Sync ServerSyncService
}

func NewServices(storages *store.Storages, logger *logger.Logger) *Services {
	return &Services{
		Sync: NewServerSyncService(storages.Sync, logger),
	}
}

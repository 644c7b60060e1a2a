// Package http implements the HTTP transport layer of the reference sync
// server. It provides middleware, route handlers, and request/response
// utilities for the push/pull API. Authentication, logging, and tracing are
// handled here before requests reach the service layer.
package http

import (
	"github.com/tillware/syncengine/internal/config"
	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/service"
)

type Handler struct {
	services *service.Services
	cfg      config.Server

	logger *logger.Logger
}

func NewHandler(services *service.Services, cfg config.Server, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		cfg:      cfg,
		logger:   logger,
	}
}

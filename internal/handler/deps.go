package handler

import (
	"dojo/internal/app/arena"
	"dojo/internal/app/storage"
	"dojo/internal/configs"
)

// AppDeps bundles what the HTTP layer needs. Archive is nil when archiving is disabled.
type AppDeps struct {
	Hub     *arena.Hub
	Config  *configs.AppConfig
	Archive storage.ArchiveService
}

package http

import (
	"context"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
	"github.com/unitwatch/inventory-backend/internal/inventory/service"
)

// ConfigStore is the admin-facing slice of the config repository.
type ConfigStore interface {
	ListActive(ctx context.Context) ([]domain.ProjectConfig, error)
	Get(ctx context.Context, id int64) (*domain.ProjectConfig, error)
	CreateAgent(ctx context.Context, name string) (int64, error)
	CreateProject(ctx context.Context, name, chatID string, keyPrefixes []string) (int64, error)
	CreateConfig(ctx context.Context, projectID, agentID int64, spreadsheetID, gid, htmlURL string, headerRow int, invalidColors []string) (int64, error)
	UpsertColumnMapping(ctx context.Context, configID int64, def domain.ColumnDefinition) error
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

// ChangeStore lists recorded changes for a configuration.
type ChangeStore interface {
	ListRecent(ctx context.Context, configID int64, limit int) ([]domain.ChangeRecord, error)
}

// ScanRunner triggers scans outside the cron schedule.
type ScanRunner interface {
	Run(ctx context.Context) (*service.RunSummary, error)
	ScanConfig(ctx context.Context, cfg domain.ProjectConfig) (domain.ScanResult, error)
}

// Handler bundles the dependencies for inventory admin endpoints.
type Handler struct {
	configs ConfigStore
	changes ChangeStore
	scanner ScanRunner
}

func New(configs ConfigStore, changes ChangeStore, scanner ScanRunner) *Handler {
	return &Handler{
		configs: configs,
		changes: changes,
		scanner: scanner,
	}
}

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// JSONReport is the machine-readable sibling of the Excel workbook.
type JSONReport struct {
	GeneratedAt time.Time              `json:"generated_at"`
	RunID       string                 `json:"run_id"`
	Projects    []domain.GroupedResult `json:"projects"`
}

// WriteJSON writes the run report as indented JSON next to the Excel file
// and returns the file path.
func WriteJSON(dir string, runAt time.Time, runID string, results []domain.GroupedResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir reports: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s.json", runAt.Format("20060102_150405")))

	data, err := json.MarshalIndent(JSONReport{
		GeneratedAt: runAt,
		RunID:       runID,
		Projects:    results,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write json report: %w", err)
	}
	return path, nil
}

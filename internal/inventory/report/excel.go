// Package report renders one scan run as Excel and JSON files for operators
// who want more detail than the Telegram summary.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

const (
	summarySheet = "Tổng quan"
	detailSheet  = "Chi tiết"
)

// WriteExcel renders the aggregated results of one run into a two-sheet
// workbook under dir and returns the file path. The summary sheet carries one
// row per (agent, project) pair, the detail sheet one row per change.
func WriteExcel(dir string, runAt time.Time, results []domain.GroupedResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir reports: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s.xlsx", runAt.Format("20060102_150405")))

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(summarySheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(detailSheet); err != nil {
		return "", err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", err
	}

	writeRow(f, summarySheet, 1, "Đại lý", "Dự án", "Nhập thêm", "Đã bán", "Thay đổi")
	for i, res := range results {
		writeRow(f, summarySheet, i+2,
			res.AgentName, res.ProjectName,
			len(res.Diff.Added), len(res.Diff.Removed), len(res.Diff.Changed))
	}

	writeRow(f, detailSheet, 1, "Đại lý", "Dự án", "Loại", "Mã căn", "Trường", "Giá trị cũ", "Giá trị mới")
	row := 2
	for _, res := range results {
		for _, key := range res.Diff.Added {
			writeRow(f, detailSheet, row, res.AgentName, res.ProjectName, domain.ChangeAdded, key, "", "", "")
			row++
		}
		for _, key := range res.Diff.Removed {
			writeRow(f, detailSheet, row, res.AgentName, res.ProjectName, domain.ChangeRemoved, key, "", "", "")
			row++
		}
		for _, kc := range res.Diff.Changed {
			for _, fc := range kc.Fields {
				writeRow(f, detailSheet, row, res.AgentName, res.ProjectName, domain.ChangeChanged,
					kc.Key, fc.Field, deref(fc.Old), deref(fc.New))
				row++
			}
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "B", 24)
	_ = f.SetColWidth(detailSheet, "A", "D", 20)

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/service"
	"github.com/fleetworks/fleet-finance/pkg/utils"
)

// Exporter writes reconciliation results to an Excel workbook for the
// accounting team.
type Exporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewExporter creates a new reconciliation exporter
func NewExporter(outputDir string, logger *zap.Logger) (*Exporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report output dir: %w", err)
	}
	return &Exporter{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// ExportDeficits writes one workbook with an advance-deficit sheet and one
// parts-reconciliation sheet per work order report. Returns the file path.
func (e *Exporter) ExportDeficits(deficits []service.AdvanceDeficit, partsReports []*service.WorkOrderPartsReport) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const deficitSheet = "Advance Deficits"
	if err := f.SetSheetName("Sheet1", deficitSheet); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{"Advance ID", "Supervisor", "Status", "Advance Amount", "Approved Spend", "Deficit"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		e.setCell(f, deficitSheet, cell, h)
	}
	for row, d := range deficits {
		values := []interface{}{
			d.AdvanceID,
			d.FieldSupervisorID,
			string(d.Status),
			d.AdvanceAmount.StringFixed(2),
			d.ApprovedSpend.StringFixed(2),
			d.Deficit.StringFixed(2),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			e.setCell(f, deficitSheet, cell, v)
		}
	}

	for _, report := range partsReports {
		if err := e.addPartsSheet(f, report); err != nil {
			return "", err
		}
	}

	path := filepath.Join(e.outputDir, fmt.Sprintf("reconciliation_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Reconciliation workbook written",
		zap.String("path", path),
		zap.Int("deficits", len(deficits)),
		zap.Int("work_orders", len(partsReports)))
	return path, nil
}

func (e *Exporter) addPartsSheet(f *excelize.File, report *service.WorkOrderPartsReport) error {
	short := report.WorkOrderID
	if len(short) > 8 {
		short = short[:8]
	}
	sheet := utils.SanitizeSheetName("WO " + short)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	e.setCell(f, sheet, "A1", "Work Order")
	e.setCell(f, sheet, "B1", report.WorkOrderID)
	if report.Partial {
		e.setCell(f, sheet, "C1", "PARTIAL: installed totals unavailable")
	}

	headers := []string{"Part ID", "Issued Qty", "Installed Qty", "Bucket"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		e.setCell(f, sheet, cell, h)
	}
	for row, part := range report.Parts {
		values := []interface{}{part.PartID, part.IssuedQty, part.InstalledQty, string(part.Bucket)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			e.setCell(f, sheet, cell, v)
		}
	}

	return nil
}

func (e *Exporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell", zap.String("sheet", sheet), zap.String("cell", cell), zap.Error(err))
	}
}

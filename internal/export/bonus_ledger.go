package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

const (
	SheetReferral = "Referral Bonuses"
	SheetNewAgent = "New Agent Bonuses"
)

var ledgerHeader = []string{
	"Bonus ID",
	"Beneficiary Agent",
	"Triggered By",
	"Client",
	"Deal #",
	"Amount (AED)",
	"Created At",
}

var ledgerColumnWidths = []float64{38, 38, 28, 28, 8, 15, 20}

// BonusLedgerWorkbook renders both ledgers as one xlsx with a sheet each.
func BonusLedgerWorkbook(referral, newAgent []domain.Bonus) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}

	for _, sheet := range []struct {
		name string
		rows []domain.Bonus
	}{
		{SheetReferral, referral},
		{SheetNewAgent, newAgent},
	} {
		if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
		if err := writeLedgerSheet(f, sheet.name, sheet.rows, headerStyle, amountStyle); err != nil {
			return nil, err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(SheetReferral); err == nil {
		f.SetActiveSheet(idx)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeLedgerSheet(f *excelize.File, sheet string, rows []domain.Bonus, headerStyle, amountStyle int) error {
	for col, header := range ledgerHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheet, name, name, ledgerColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(ledgerHeader), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, b := range rows {
		row := i + 2
		amount, _ := b.Amount.Float64()
		values := []any{
			b.BonusID,
			b.BeneficiaryID,
			nameOr(b.TriggeredByAgentName, b.TriggeredByAgentID),
			nameOr(b.ClientName, b.ClientID),
			b.DealNumber,
			amount,
			b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(sheet, amountCell, amountCell, amountStyle); err != nil {
			return fmt.Errorf("failed to style amount: %w", err)
		}
	}
	return nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/ardash/internal/aging"
	"github.com/odyssey-erp/ardash/internal/analytics"
)

// Sheet names used by the workbook export.
const (
	PivotSheet = "Aging_Pivot"
	RawSheet   = "Raw_Filtered_Data"
)

// OverdueFill is the background of rows with an amount in the overflow bucket.
const OverdueFill = "FFE6E6"

// numFmtAmount is the built-in "#,##0.00" format.
const numFmtAmount = 4

type workbookStyles struct {
	header  int
	amount  int
	overdue int
	grand   int
}

// WriteWorkbook renders the pivot and the filtered invoices as an xlsx workbook.
func WriteWorkbook(w io.Writer, report *analytics.Report) error {
	if report == nil {
		return fmt.Errorf("export: report required")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), PivotSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(RawSheet); err != nil {
		return err
	}
	styles, err := newWorkbookStyles(f)
	if err != nil {
		return err
	}
	if err := writePivotSheet(f, report.Table, styles); err != nil {
		return err
	}
	if err := writeRawSheet(f, report.Invoices, styles); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	var s workbookStyles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E2E8F0"}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.amount, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return s, err
	}
	if s.overdue, err = f.NewStyle(&excelize.Style{
		NumFmt: numFmtAmount,
		Fill:   excelize.Fill{Type: "pattern", Color: []string{OverdueFill}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.grand, err = f.NewStyle(&excelize.Style{
		NumFmt: numFmtAmount,
		Font:   &excelize.Font{Bold: true},
	}); err != nil {
		return s, err
	}
	return s, nil
}

func writePivotSheet(f *excelize.File, table aging.Table, styles workbookStyles) error {
	headers := PivotHeaders(table)
	if err := writeHeader(f, PivotSheet, headers, styles.header); err != nil {
		return err
	}
	overflow := table.OverflowColumn()
	last := len(headers)
	for i, row := range table.Rows {
		values := make([]interface{}, 0, last)
		isGrand := i == len(table.Rows)-1
		if isGrand {
			values = append(values, "")
		} else {
			values = append(values, i+1)
		}
		values = append(values, row.Key)
		for _, col := range table.Columns {
			values = append(values, row.Amount(col).InexactFloat64())
		}
		values = append(values, row.Total.InexactFloat64())

		excelRow := i + 2
		start, err := excelize.CoordinatesToCellName(1, excelRow)
		if err != nil {
			return err
		}
		end, err := excelize.CoordinatesToCellName(last, excelRow)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(PivotSheet, start, &values); err != nil {
			return err
		}
		style := styles.amount
		switch {
		case isGrand:
			style = styles.grand
		case aging.IsOverdueHighlight(row, overflow):
			style = styles.overdue
		}
		if err := f.SetCellStyle(PivotSheet, start, end, style); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(PivotSheet, "B", "B", 32); err != nil {
		return err
	}
	return nil
}

func writeRawSheet(f *excelize.File, invoices []aging.Invoice, styles workbookStyles) error {
	if err := writeHeader(f, RawSheet, InvoiceHeaders, styles.header); err != nil {
		return err
	}
	for i, inv := range invoices {
		values := []interface{}{
			inv.Number,
			inv.CustomerName,
			inv.AccountManager,
			isoDate(inv.InvoiceDate),
			isoDate(inv.DueDate),
			inv.InvoiceAmount.InexactFloat64(),
			inv.PaidAmount.InexactFloat64(),
			inv.DueAmount.InexactFloat64(),
			inv.Status,
			inv.DaysOverdue,
			inv.AgingBucket,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(RawSheet, cell, &values); err != nil {
			return err
		}
	}
	if len(invoices) > 0 {
		if err := f.SetCellStyle(RawSheet, "F2", fmt.Sprintf("H%d", len(invoices)+1), styles.amount); err != nil {
			return err
		}
	}
	return f.SetColWidth(RawSheet, "A", "K", 16)
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", end, style)
}

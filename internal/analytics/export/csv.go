package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ardash/internal/aging"
)

// InvoiceHeaders are the columns of the raw invoice sheet and CSV section.
var InvoiceHeaders = []string{
	"Invoice No.", "Customer Name", "Account Manager", "Invoice Date", "Due Date",
	"Invoice Amount", "Paid Amount", "Due Amount", "Payment Status", "Days Overdue", "Aging Bucket",
}

// PivotHeaders returns S.No, the key column, every bucket and Total.
func PivotHeaders(table aging.Table) []string {
	headers := make([]string, 0, len(table.Columns)+3)
	headers = append(headers, "S.No", table.KeyColumn)
	headers = append(headers, table.Columns...)
	return append(headers, "Total")
}

// WritePivotCSV serialises the pivot table. The Grand Total row has no serial number.
func WritePivotCSV(w io.Writer, table aging.Table) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(PivotHeaders(table)); err != nil {
		return err
	}
	for i, row := range table.Rows {
		serial := ""
		if i < len(table.Rows)-1 {
			serial = strconv.Itoa(i + 1)
		}
		record := make([]string, 0, len(table.Columns)+3)
		record = append(record, serial, row.Key)
		for _, col := range table.Columns {
			record = append(record, formatAmount(row.Amount(col)))
		}
		record = append(record, formatAmount(row.Total))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteInvoicesCSV emits the filtered invoices behind a report.
func WriteInvoicesCSV(w io.Writer, invoices []aging.Invoice) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(InvoiceHeaders); err != nil {
		return err
	}
	for _, inv := range invoices {
		if err := writer.Write(invoiceRecord(inv)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func invoiceRecord(inv aging.Invoice) []string {
	return []string{
		inv.Number,
		inv.CustomerName,
		inv.AccountManager,
		isoDate(inv.InvoiceDate),
		isoDate(inv.DueDate),
		formatAmount(inv.InvoiceAmount),
		formatAmount(inv.PaidAmount),
		formatAmount(inv.DueAmount),
		inv.Status,
		strconv.Itoa(inv.DaysOverdue),
		inv.AgingBucket,
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func isoDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

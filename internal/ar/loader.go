package ar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ardash/internal/aging"
)

// ErrNoCustomerColumn is returned when no header can be mapped to the customer field.
var ErrNoCustomerColumn = fmt.Errorf("ar: no customer column: %w", aging.ErrMissingGroupKey)

// Options tunes how a receivable sheet is interpreted.
type Options struct {
	// AsOf anchors days-overdue; zero means today (UTC).
	AsOf time.Time
	// DayFirst prefers 02/01/2006 over 01/02/2006 for ambiguous dates.
	DayFirst bool
	// Columns pins fields to explicit headers.
	Columns map[Field]string
	// HeaderScan limits header detection; zero scans 10 rows.
	HeaderScan int
}

// SkipCounts tallies rows dropped during cleaning.
type SkipCounts struct {
	Blank      int `json:"blank"`
	NoCustomer int `json:"no_customer"`
	FullyPaid  int `json:"fully_paid"`
}

// Total sums every skip reason.
func (s SkipCounts) Total() int {
	return s.Blank + s.NoCustomer + s.FullyPaid
}

// Result is the cleaned output of one sheet.
type Result struct {
	Invoices  []aging.Invoice  `json:"invoices"`
	Headers   []string         `json:"headers"`
	Columns   map[Field]string `json:"columns"`
	HeaderRow int              `json:"header_row"`
	DataRows  int              `json:"data_rows"`
	Skipped   SkipCounts       `json:"skipped"`
}

// HasAccountManager reports whether the sheet carried an account manager column.
func (r *Result) HasAccountManager() bool {
	if r == nil {
		return false
	}
	_, ok := r.Columns[FieldAccountManager]
	return ok
}

// Load reads a workbook or CSV and returns cleaned invoices.
func Load(r io.Reader, filename string, opts Options) (*Result, error) {
	rows, err := ReadRows(r, filename)
	if err != nil {
		return nil, err
	}
	return Clean(rows, opts)
}

// Clean turns raw sheet rows into invoices: it locates the header, resolves
// columns, normalises amounts and dates, drops fully paid and nameless rows.
func Clean(rows [][]string, opts Options) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	headerIdx := FindHeaderRow(rows, opts.HeaderScan)
	headers := make([]string, len(rows[headerIdx]))
	for i, h := range rows[headerIdx] {
		headers[i] = strings.TrimSpace(h)
	}
	mapping := ResolveColumns(headers, DefaultAliases, opts.Columns)
	if !mapping.Has(FieldCustomer) {
		return nil, fmt.Errorf("%w (headers: %s)", ErrNoCustomerColumn, strings.Join(headers, ", "))
	}

	result := &Result{
		Headers:   headers,
		Columns:   make(map[Field]string, len(mapping)),
		HeaderRow: headerIdx,
	}
	for field, idx := range mapping {
		result.Columns[field] = headers[idx]
	}

	for _, row := range rows[headerIdx+1:] {
		if isBlankRow(row) {
			result.Skipped.Blank++
			continue
		}
		result.DataRows++
		cell := func(f Field) string {
			idx, ok := mapping[f]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		customer := cell(FieldCustomer)
		if customer == "" || strings.EqualFold(customer, "nan") {
			result.Skipped.NoCustomer++
			continue
		}
		dueAmount := ParseAmount(cell(FieldDueAmount))
		if mapping.Has(FieldDueAmount) && !dueAmount.GreaterThan(decimal.Zero) {
			result.Skipped.FullyPaid++
			continue
		}

		inv := aging.Invoice{
			Number:         cell(FieldInvoiceNumber),
			CustomerName:   customer,
			AccountManager: cell(FieldAccountManager),
			InvoiceDate:    ParseDate(cell(FieldInvoiceDate), opts.DayFirst),
			DueDate:        ParseDate(cell(FieldDueDate), opts.DayFirst),
			InvoiceAmount:  nonNegative(ParseAmount(cell(FieldInvoiceAmount))),
			PaidAmount:     ParseAmount(cell(FieldPaidAmount)),
			DueAmount:      dueAmount,
			Status:         cell(FieldStatus),
		}
		inv.DaysOverdue = aging.DaysOverdue(inv.DueDate, asOf)
		result.Invoices = append(result.Invoices, inv)
	}
	return result, nil
}

// IsNoCustomerColumn reports whether err came from a sheet without a customer column.
func IsNoCustomerColumn(err error) bool {
	return errors.Is(err, ErrNoCustomerColumn)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

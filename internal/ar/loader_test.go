package ar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/ardash/internal/aging"
)

var asOf = time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)

const sampleCSV = `ACME Trading Pvt Ltd,,,,,,
Receivables as of 30 Nov 2025,,,,,,
Customer Name,Account Manager,Invoice No.,Invoice Date,Due Date,Invoice Amount,Paid Amount,Due Amount
Acme,Rina,INV-1,2025-10-01,2025-10-31,"₹1,000.50",0,"1,000.50"
Acme,Rina,INV-2,2025-07-01,2025-08-01,"2,000",500,"1,500"
Beta,,INV-3,2025-09-01,11/15/2025,300,300,0
,,INV-4,2025-09-01,2025-09-30,10,0,10
,,,,,,,
Gamma,Arif,INV-5,2025-11-01,not a date,(50),0,50
`

func TestCleanCSV(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV), "aging.csv", Options{AsOf: asOf})
	require.NoError(t, err)

	require.Equal(t, 2, res.HeaderRow)
	require.True(t, res.HasAccountManager())
	require.Equal(t, "Due Amount", res.Columns[FieldDueAmount])
	require.Equal(t, "Invoice Amount", res.Columns[FieldInvoiceAmount])
	require.Equal(t, "Paid Amount", res.Columns[FieldPaidAmount])

	require.Len(t, res.Invoices, 3)
	assert.Equal(t, 1, res.Skipped.FullyPaid)
	assert.Equal(t, 1, res.Skipped.NoCustomer)
	assert.Equal(t, 1, res.Skipped.Blank)
	assert.Equal(t, 3, res.Skipped.Total())

	first := res.Invoices[0]
	assert.Equal(t, "INV-1", first.Number)
	assert.True(t, first.InvoiceAmount.Equal(decimal.RequireFromString("1000.50")))
	assert.Equal(t, 30, first.DaysOverdue)

	second := res.Invoices[1]
	assert.True(t, second.PaidAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 121, second.DaysOverdue)

	gamma := res.Invoices[2]
	assert.Nil(t, gamma.DueDate)
	assert.Equal(t, 0, gamma.DaysOverdue)
	assert.True(t, gamma.InvoiceAmount.IsZero(), "negative invoice amount clamps to zero")
}

func TestCleanFeedsAggregate(t *testing.T) {
	res, err := Load(strings.NewReader(sampleCSV), "aging.csv", Options{AsOf: asOf})
	require.NoError(t, err)

	table, err := aging.Aggregate(res.Invoices, aging.GroupByCustomer, aging.DefaultBucketConfig())
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	acme := table.Rows[0]
	require.Equal(t, "Acme", acme.Key)
	assert.True(t, acme.Amount("0–30 Days").Equal(decimal.RequireFromString("1000.50")))
	assert.True(t, acme.Amount(">90 Days").Equal(decimal.NewFromInt(2000)))
	assert.True(t, aging.IsOverdueHighlight(acme, table.OverflowColumn()))
}

func TestCleanWithoutCustomerColumn(t *testing.T) {
	rows := [][]string{
		{"Invoice No.", "Due Amount", "Due Date"},
		{"INV-1", "100", "2025-01-01"},
	}
	_, err := Clean(rows, Options{AsOf: asOf})
	require.ErrorIs(t, err, ErrNoCustomerColumn)
	require.ErrorIs(t, err, aging.ErrMissingGroupKey)
	require.True(t, IsNoCustomerColumn(err))
}

func TestCleanWithoutDueAmountKeepsRows(t *testing.T) {
	rows := [][]string{
		{"Client", "Amount", "Due Date"},
		{"Acme", "100", "2025-11-01"},
		{"Beta", "0", "2025-11-01"},
	}
	res, err := Clean(rows, Options{AsOf: asOf})
	require.NoError(t, err)
	require.Len(t, res.Invoices, 2)
	require.False(t, res.HasAccountManager())
	require.Equal(t, 29, res.Invoices[0].DaysOverdue)
}

func TestCleanColumnOverrides(t *testing.T) {
	rows := [][]string{
		{"Party", "Bill Value", "Pending", "Expiry"},
		{"Acme", "90", "90", "2025-11-20"},
	}
	res, err := Clean(rows, Options{
		AsOf: asOf,
		Columns: map[Field]string{
			FieldInvoiceAmount: "Bill Value",
			FieldDueAmount:     "pending",
			FieldDueDate:       "EXPIRY",
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Invoices, 1)
	inv := res.Invoices[0]
	assert.Equal(t, "Acme", inv.CustomerName)
	assert.True(t, inv.InvoiceAmount.Equal(decimal.NewFromInt(90)))
	assert.Equal(t, 10, inv.DaysOverdue)
}

func TestCleanEmpty(t *testing.T) {
	_, err := Clean(nil, Options{})
	require.ErrorIs(t, err, ErrEmptyWorkbook)

	_, err = Load(strings.NewReader(""), "empty.csv", Options{})
	require.ErrorIs(t, err, ErrEmptyWorkbook)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load(strings.NewReader("x"), "report.pdf", Options{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Customer", "Invoice Amount", "Due Amount", "Due Date"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Acme", 120.5, 120.5, "2025-09-01"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Beta", 80, 80, "2025-11-25"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	res, err := Load(&buf, "Aging.XLSX", Options{AsOf: asOf})
	require.NoError(t, err)
	require.Len(t, res.Invoices, 2)
	assert.Equal(t, "Acme", res.Invoices[0].CustomerName)
	assert.True(t, res.Invoices[0].InvoiceAmount.Equal(decimal.RequireFromString("120.5")))
	assert.Equal(t, 90, res.Invoices[0].DaysOverdue)
	assert.Equal(t, 5, res.Invoices[1].DaysOverdue)
}

func TestLoadXLSXDateCellsIgnoreDayFirst(t *testing.T) {
	due := time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Customer Name", "Invoice Amount", "Due Amount", "Due Date"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Acme", 1500, 1500, due}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Beta", 90, 90, "08/11/2025"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	res, err := Load(&buf, "aging.xlsx", Options{AsOf: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), DayFirst: true})
	require.NoError(t, err)
	require.Len(t, res.Invoices, 2)

	acme := res.Invoices[0]
	require.NotNil(t, acme.DueDate)
	assert.True(t, due.Equal(*acme.DueDate), "got %s", acme.DueDate)
	assert.Equal(t, 23, acme.DaysOverdue)
	assert.True(t, acme.InvoiceAmount.Equal(decimal.NewFromInt(1500)))

	beta := res.Invoices[1]
	require.NotNil(t, beta.DueDate)
	assert.True(t, due.Equal(*beta.DueDate), "text cells still honour DayFirst, got %s", beta.DueDate)
}

func TestFindHeaderRow(t *testing.T) {
	rows := [][]string{
		{"Company report"},
		{"Customer", "Region"},
		{"Customer Name", "Invoice Amount", "Due Date"},
	}
	require.Equal(t, 2, FindHeaderRow(rows, 0))
	require.Equal(t, 0, FindHeaderRow(rows, 2))
	require.Equal(t, 0, FindHeaderRow([][]string{{"a"}, {"b"}}, 0))
}

func TestResolveColumnsPriority(t *testing.T) {
	headers := []string{"Paid Amount", "Amount", "Due_Amount", "Customer Name", "A/c Manager", "Status"}
	m := ResolveColumns(headers, nil, nil)
	assert.Equal(t, 0, m[FieldPaidAmount])
	assert.Equal(t, 1, m[FieldInvoiceAmount])
	assert.Equal(t, 2, m[FieldDueAmount])
	assert.Equal(t, 3, m[FieldCustomer])
	assert.Equal(t, 4, m[FieldAccountManager])
	assert.Equal(t, 5, m[FieldStatus])

	headers = []string{"Customer Name", "Invoice Amount", "Due Date", "Days Outstanding", "Balance"}
	m = ResolveColumns(headers, nil, nil)
	assert.Equal(t, 4, m[FieldDueAmount])
	assert.Equal(t, 1, m[FieldInvoiceAmount])
	for field, col := range m {
		assert.NotEqual(t, 3, col, "%s claimed Days Outstanding", field)
	}
}

func TestCleanIgnoresDaysOutstanding(t *testing.T) {
	rows := [][]string{
		{"Customer Name", "Invoice Amount", "Due Date", "Days Outstanding", "Balance"},
		{"Acme", "500", "2025-11-20", "0", "500"},
		{"Beta", "200", "2025-10-01", "60", "0"},
	}
	res, err := Clean(rows, Options{AsOf: asOf})
	require.NoError(t, err)
	require.Len(t, res.Invoices, 1)
	assert.Equal(t, "Acme", res.Invoices[0].CustomerName)
	assert.True(t, res.Invoices[0].DueAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, res.Skipped.FullyPaid)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "cliente nome", normalizeHeader("  Clíente_Nome "))
	assert.Equal(t, "due amount", normalizeHeader("DUE-AMOUNT"))
	assert.Equal(t, "invoice no", normalizeHeader("Invoice No."))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1,234.50":   "1234.5",
		"₹ 2,000":    "2000",
		"Rs. 15":     "15",
		"INR 7":      "7",
		"$3.10":      "3.1",
		"(1,200)":    "-1200",
		"":           "0",
		"-":          "0",
		"n/a":        "0",
		"1\u00a0000": "1000",
	}
	for in, want := range cases {
		got := ParseAmount(in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%q -> %s", in, got)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	got := ParseDate("2025-03-04", false)
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got))

	got = ParseDate("03/04/2025", false)
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got))

	got = ParseDate("04/03/2025", true)
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got))

	got = ParseDate("25/12/2025", false)
	require.NotNil(t, got)
	assert.Equal(t, time.December, got.Month())

	got = ParseDate("45720", false)
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got))

	assert.Nil(t, ParseDate("", false))
	assert.Nil(t, ParseDate("soon", false))
	assert.Nil(t, ParseDate("0", false))
}

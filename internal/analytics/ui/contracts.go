package ui

import (
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/ardash/internal/aging"
	"github.com/odyssey-erp/ardash/internal/analytics"
	"github.com/odyssey-erp/ardash/internal/analytics/svg"
)

// CurrencySymbol prefixes every rendered amount.
const CurrencySymbol = "₹"

var printer = message.NewPrinter(language.English)

// FormatAmount renders a decimal as "₹1,234.50".
func FormatAmount(d decimal.Decimal) string {
	return CurrencySymbol + printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// FormatDate renders optional invoice dates; nil is blank.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02 Jan 2006")
}

// DashboardFilters represents sanitized query filters used by the dashboard.
type DashboardFilters struct {
	DatasetID      string
	AccountManager string
	Customer       string
	View           aging.GroupBy
	Limits         [3]string
	AsOf           string
	Detail         string
}

// Query encodes the filters for export and drill-down links.
func (f DashboardFilters) Query() template.URL {
	values := url.Values{}
	set := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}
	set("dataset", f.DatasetID)
	set("am", f.AccountManager)
	set("customer", f.Customer)
	set("view", string(f.View))
	set("b1", f.Limits[0])
	set("b2", f.Limits[1])
	set("b3", f.Limits[2])
	set("as_of", f.AsOf)
	return template.URL(values.Encode())
}

// Option is a select element entry.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// KPICard exposes a headline metric for the dashboard cards.
type KPICard struct {
	Label string
	Value string
	Tone  string
}

// PivotRow is one rendered pivot line.
type PivotRow struct {
	Index      int
	Key        string
	Cells      []string
	Total      string
	Highlight  bool
	GrandTotal bool
}

// InvoiceRow is one rendered invoice of the drill-down table.
type InvoiceRow struct {
	Number        string
	InvoiceDate   string
	DueDate       string
	InvoiceAmount string
	PaidAmount    string
	DueAmount     string
	DaysOverdue   int
	Bucket        string
	Status        string
}

// DetailView lists one customer's invoices with subtotals.
type DetailView struct {
	Customer     string
	Invoices     []InvoiceRow
	InvoiceTotal string
	PaidTotal    string
	DueTotal     string
}

// DashboardViewModel combines all dashboard data for rendering.
type DashboardViewModel struct {
	Filters         DashboardFilters
	HasDataset      bool
	DatasetName     string
	AsOf            string
	LoadedAt        string
	SkippedRows     int
	BucketWarning   string
	GroupingNotice  string
	KPIs            []KPICard
	KeyColumn       string
	Columns         []string
	Rows            []PivotRow
	Empty           bool
	AccountManagers []Option
	Customers       []Option
	Detail          *DetailView
	BucketSVG       template.HTML
	ExportQuery     template.URL
}

// BarRenderer abstracts SVG bar chart rendering for the dashboard.
type BarRenderer interface {
	Bars(width, height int, values []float64, labels []string, opts svg.BarOpts) (template.HTML, error)
}

// BuildDashboard converts a report into the dashboard view model. A nil
// renderer skips the chart.
func BuildDashboard(report *analytics.Report, filters DashboardFilters, bars BarRenderer) (DashboardViewModel, error) {
	vm := DashboardViewModel{Filters: filters, ExportQuery: filters.Query()}
	if report == nil {
		return vm, nil
	}
	vm.HasDataset = true
	vm.DatasetName = report.DatasetName
	vm.AsOf = report.AsOf.Format("02 Jan 2006")
	if !report.LoadedAt.IsZero() {
		vm.LoadedAt = report.LoadedAt.Format("02 Jan 2006 15:04")
	}
	vm.SkippedRows = report.SkippedRows
	vm.BucketWarning = report.BucketWarning
	vm.GroupingNotice = report.GroupingNotice
	vm.Empty = report.Empty()

	kpi := report.KPI
	vm.KPIs = []KPICard{
		{Label: "Total Receivable", Value: FormatAmount(kpi.TotalReceivable), Tone: "neutral"},
		{Label: "Paid", Value: FormatAmount(kpi.Paid), Tone: "positive"},
		{Label: "Unpaid", Value: FormatAmount(kpi.Unpaid), Tone: "negative"},
		{Label: "Paid Ratio", Value: kpi.PaidRatio.StringFixed(1) + "%", Tone: "neutral"},
	}

	table := report.Table
	vm.KeyColumn = table.KeyColumn
	vm.Columns = table.Columns
	vm.Rows = ToPivotRows(table)

	vm.AccountManagers = options(report.AccountManagers, report.Filter.AccountManager)
	vm.Customers = options(report.Customers, report.Filter.Customer)

	if report.Detail != nil {
		vm.Detail = ToDetailView(report.Detail)
	}

	if bars != nil && !vm.Empty {
		grand := table.GrandTotal()
		values := make([]float64, len(table.Columns))
		for i, col := range table.Columns {
			values[i] = grand.Amount(col).InexactFloat64()
		}
		chart, err := bars.Bars(svg.DefaultWidth, svg.DefaultHeight, values, table.Columns, svg.BarOpts{
			Title:       "Receivables by bucket",
			Description: "Grand total per aging bucket",
			Highlight:   len(table.Columns) - 1,
		})
		if err != nil {
			return DashboardViewModel{}, err
		}
		vm.BucketSVG = chart
	}
	return vm, nil
}

// ToPivotRows formats the pivot, numbering body rows from 1.
func ToPivotRows(table aging.Table) []PivotRow {
	overflow := table.OverflowColumn()
	rows := make([]PivotRow, 0, len(table.Rows))
	for i, row := range table.Rows {
		cells := make([]string, len(table.Columns))
		for j, col := range table.Columns {
			cells[j] = FormatAmount(row.Amount(col))
		}
		view := PivotRow{
			Key:        row.Key,
			Cells:      cells,
			Total:      FormatAmount(row.Total),
			Highlight:  aging.IsOverdueHighlight(row, overflow),
			GrandTotal: i == len(table.Rows)-1,
		}
		if !view.GrandTotal {
			view.Index = i + 1
		}
		rows = append(rows, view)
	}
	return rows
}

// ToDetailView formats a drill-down.
func ToDetailView(detail *analytics.CustomerDetail) *DetailView {
	view := &DetailView{
		Customer:     detail.Customer,
		Invoices:     make([]InvoiceRow, 0, len(detail.Invoices)),
		InvoiceTotal: FormatAmount(detail.InvoiceTotal),
		PaidTotal:    FormatAmount(detail.PaidTotal),
		DueTotal:     FormatAmount(detail.DueTotal),
	}
	for _, inv := range detail.Invoices {
		view.Invoices = append(view.Invoices, InvoiceRow{
			Number:        inv.Number,
			InvoiceDate:   FormatDate(inv.InvoiceDate),
			DueDate:       FormatDate(inv.DueDate),
			InvoiceAmount: FormatAmount(inv.InvoiceAmount),
			PaidAmount:    FormatAmount(inv.PaidAmount),
			DueAmount:     FormatAmount(inv.DueAmount),
			DaysOverdue:   inv.DaysOverdue,
			Bucket:        inv.AgingBucket,
			Status:        inv.Status,
		})
	}
	return view
}

// LimitStrings renders bucket limits back into form values.
func LimitStrings(cfg aging.BucketConfig) [3]string {
	var out [3]string
	for i, limit := range cfg.Limits() {
		if i >= len(out) {
			break
		}
		out[i] = strconv.Itoa(limit)
	}
	return out
}

func options(values []string, selected string) []Option {
	opts := make([]Option, 0, len(values)+1)
	opts = append(opts, Option{Value: analytics.FilterAll, Label: analytics.FilterAll, Selected: selected == "" || selected == analytics.FilterAll})
	for _, v := range values {
		opts = append(opts, Option{Value: v, Label: v, Selected: v == selected})
	}
	return opts
}

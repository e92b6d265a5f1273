package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ardash/internal/aging"
)

// FilterAll is the select value that disables a filter.
const FilterAll = "All"

// ReportFilter scopes a report over one dataset.
type ReportFilter struct {
	DatasetID      string        `json:"dataset_id,omitempty"`
	AccountManager string        `json:"account_manager,omitempty"`
	Customer       string        `json:"customer,omitempty"`
	GroupBy        aging.GroupBy `json:"group_by"`
	Limits         []int         `json:"limits,omitempty"`
	AsOf           time.Time     `json:"as_of"`
	DetailCustomer string        `json:"detail_customer,omitempty"`
}

// CustomerDetail lists one customer's invoices with subtotals.
type CustomerDetail struct {
	Customer     string          `json:"customer"`
	Invoices     []aging.Invoice `json:"invoices"`
	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	PaidTotal    decimal.Decimal `json:"paid_total"`
	DueTotal     decimal.Decimal `json:"due_total"`
}

// Report is everything the dashboard and exports render.
type Report struct {
	DatasetID       string             `json:"dataset_id"`
	DatasetName     string             `json:"dataset_name"`
	LoadedAt        time.Time          `json:"loaded_at"`
	SkippedRows     int                `json:"skipped_rows"`
	AsOf            time.Time          `json:"as_of"`
	Filter          ReportFilter       `json:"filter"`
	Buckets         aging.BucketConfig `json:"buckets"`
	BucketWarning   string             `json:"bucket_warning,omitempty"`
	GroupingNotice  string             `json:"grouping_notice,omitempty"`
	Table           aging.Table        `json:"table"`
	KPI             KPISummary         `json:"kpi"`
	AccountManagers []string           `json:"account_managers"`
	Customers       []string           `json:"customers"`
	Invoices        []aging.Invoice    `json:"invoices"`
	Detail          *CustomerDetail    `json:"detail,omitempty"`
}

// Empty reports whether no invoice survived the filters.
func (r *Report) Empty() bool {
	return r == nil || len(r.Invoices) == 0
}

// BuildReport filters a dataset, recomputes days overdue against filter.AsOf
// and pivots the result. Filters apply account manager first, then customer.
func BuildReport(ds Dataset, filter ReportFilter) (*Report, error) {
	if filter.AsOf.IsZero() {
		filter.AsOf = time.Now().UTC()
	}
	if filter.GroupBy == "" {
		filter.GroupBy = aging.GroupByCustomer
	}
	cfg, warning := ResolveBuckets(filter.Limits)

	report := &Report{
		DatasetID:     ds.ID,
		DatasetName:   ds.Name,
		LoadedAt:      ds.LoadedAt,
		SkippedRows:   ds.Skipped.Total(),
		AsOf:          filter.AsOf,
		Filter:        filter,
		Buckets:       cfg,
		BucketWarning: warning,
	}

	groupBy := filter.GroupBy
	if groupBy == aging.GroupByAccountManager && !ds.HasAccountManager {
		groupBy = aging.GroupByCustomer
		report.GroupingNotice = "This file has no Account Manager column; showing customer-wise buckets."
	}

	report.AccountManagers = distinct(ds.Invoices, func(inv aging.Invoice) string { return inv.AccountManager })

	scoped := make([]aging.Invoice, 0, len(ds.Invoices))
	for _, inv := range ds.Invoices {
		if isActive(filter.AccountManager) && !strings.EqualFold(strings.TrimSpace(inv.AccountManager), strings.TrimSpace(filter.AccountManager)) {
			continue
		}
		scoped = append(scoped, inv)
	}
	report.Customers = distinct(scoped, func(inv aging.Invoice) string { return inv.CustomerName })

	filtered := make([]aging.Invoice, 0, len(scoped))
	for _, inv := range scoped {
		if isActive(filter.Customer) && !strings.EqualFold(strings.TrimSpace(inv.CustomerName), strings.TrimSpace(filter.Customer)) {
			continue
		}
		inv.DaysOverdue = aging.DaysOverdue(inv.DueDate, filter.AsOf)
		filtered = append(filtered, inv)
	}
	filtered = aging.Classified(filtered, cfg)

	table, err := aging.Aggregate(filtered, groupBy, cfg)
	if err != nil {
		return nil, err
	}
	report.Table = table
	report.Invoices = filtered
	report.KPI = ComputeKPIs(filtered, table)

	if isActive(filter.DetailCustomer) {
		report.Detail = customerDetail(filtered, filter.DetailCustomer)
	}
	return report, nil
}

func customerDetail(invoices []aging.Invoice, customer string) *CustomerDetail {
	detail := &CustomerDetail{
		Customer:     strings.TrimSpace(customer),
		Invoices:     []aging.Invoice{},
		InvoiceTotal: decimal.Zero,
		PaidTotal:    decimal.Zero,
		DueTotal:     decimal.Zero,
	}
	for _, inv := range invoices {
		if !strings.EqualFold(strings.TrimSpace(inv.CustomerName), detail.Customer) {
			continue
		}
		detail.Invoices = append(detail.Invoices, inv)
		detail.InvoiceTotal = detail.InvoiceTotal.Add(inv.InvoiceAmount)
		detail.PaidTotal = detail.PaidTotal.Add(inv.PaidAmount)
		detail.DueTotal = detail.DueTotal.Add(inv.DueAmount)
	}
	return detail
}

func isActive(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && !strings.EqualFold(value, FilterAll)
}

func distinct(invoices []aging.Invoice, pick func(aging.Invoice) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, inv := range invoices {
		v := strings.TrimSpace(pick(inv))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

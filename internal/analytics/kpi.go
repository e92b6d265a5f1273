package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ardash/internal/aging"
)

var hundred = decimal.NewFromInt(100)

// KPISummary contains the receivable indicators surfaced above the pivot.
type KPISummary struct {
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	Paid            decimal.Decimal `json:"paid"`
	Unpaid          decimal.Decimal `json:"unpaid"`
	PaidRatio       decimal.Decimal `json:"paid_ratio"`
	Invoices        int             `json:"invoices"`
	Customers       int             `json:"customers"`
	OverdueKeys     int             `json:"overdue_keys"`
}

// ComputeKPIs totals the invoices behind a pivot. Paid ratio is a percentage
// rounded to one decimal and zero when nothing is receivable.
func ComputeKPIs(invoices []aging.Invoice, table aging.Table) KPISummary {
	summary := KPISummary{
		TotalReceivable: table.GrandTotal().Total,
		Paid:            decimal.Zero,
		PaidRatio:       decimal.Zero,
	}
	customers := make(map[string]struct{})
	for _, inv := range invoices {
		summary.Paid = summary.Paid.Add(inv.PaidAmount)
		summary.Invoices++
		customers[inv.CustomerName] = struct{}{}
	}
	summary.Customers = len(customers)
	summary.Unpaid = summary.TotalReceivable.Sub(summary.Paid)
	if !summary.TotalReceivable.IsZero() {
		summary.PaidRatio = summary.Paid.Div(summary.TotalReceivable).Mul(hundred).Round(1)
	}
	overflow := table.OverflowColumn()
	for _, row := range table.Body() {
		if aging.IsOverdueHighlight(row, overflow) {
			summary.OverdueKeys++
		}
	}
	return summary
}

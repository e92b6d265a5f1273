package aging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GrandTotalKey labels the synthetic summary row.
const GrandTotalKey = "Grand Total"

// GroupBy selects the pivot dimension.
type GroupBy string

const (
	GroupByCustomer       GroupBy = "customer"
	GroupByAccountManager GroupBy = "account_manager"
)

// ParseGroupBy resolves a user supplied grouping key.
func ParseGroupBy(raw string) (GroupBy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "customer", "customer-wise", "customer_name":
		return GroupByCustomer, nil
	case "account_manager", "account-manager", "am", "account manager":
		return GroupByAccountManager, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrMissingGroupKey, raw)
	}
}

// Column returns the display header for the grouping key.
func (g GroupBy) Column() string {
	if g == GroupByAccountManager {
		return "Account Manager"
	}
	return "Customer Name"
}

// Invoice is one cleaned receivable row.
type Invoice struct {
	Number         string          `json:"number,omitempty"`
	CustomerName   string          `json:"customer_name"`
	AccountManager string          `json:"account_manager,omitempty"`
	InvoiceDate    *time.Time      `json:"invoice_date,omitempty"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	InvoiceAmount  decimal.Decimal `json:"invoice_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	DueAmount      decimal.Decimal `json:"due_amount"`
	Status         string          `json:"status,omitempty"`
	DaysOverdue    int             `json:"days_overdue"`
	AgingBucket    string          `json:"aging_bucket,omitempty"`
}

// PivotRow holds per-bucket sums for one customer or account manager.
type PivotRow struct {
	Key     string                     `json:"key"`
	Buckets map[string]decimal.Decimal `json:"buckets"`
	Total   decimal.Decimal            `json:"total"`
}

// Amount returns the value for a bucket label, zero when absent.
func (r PivotRow) Amount(label string) decimal.Decimal {
	if v, ok := r.Buckets[label]; ok {
		return v
	}
	return decimal.Zero
}

// IsGrandTotal reports whether the row is the synthetic total.
func (r PivotRow) IsGrandTotal() bool {
	return r.Key == GrandTotalKey
}

// Table is a dense pivot: every row carries every column.
type Table struct {
	GroupBy   GroupBy    `json:"group_by"`
	KeyColumn string     `json:"key_column"`
	Columns   []string   `json:"columns"`
	Rows      []PivotRow `json:"rows"`
}

// OverflowColumn returns the last bucket column.
func (t Table) OverflowColumn() string {
	if len(t.Columns) == 0 {
		return ""
	}
	return t.Columns[len(t.Columns)-1]
}

// Body returns the rows without the trailing Grand Total.
func (t Table) Body() []PivotRow {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[:len(t.Rows)-1]
}

// GrandTotal returns the trailing summary row.
func (t Table) GrandTotal() PivotRow {
	if len(t.Rows) == 0 {
		return newRow(GrandTotalKey, t.Columns)
	}
	return t.Rows[len(t.Rows)-1]
}

// Classified returns copies of invoices with AgingBucket assigned.
func Classified(invoices []Invoice, cfg BucketConfig) []Invoice {
	cfg = cfg.OrDefault()
	out := make([]Invoice, len(invoices))
	for i, inv := range invoices {
		inv.AgingBucket = Classify(inv.DaysOverdue, cfg)
		out[i] = inv
	}
	return out
}

// Aggregate buckets invoice amounts by the grouping key and appends a Grand Total row.
// Invoices without a customer name are skipped. An invalid config is replaced by the default.
func Aggregate(invoices []Invoice, groupBy GroupBy, cfg BucketConfig) (Table, error) {
	if groupBy != GroupByCustomer && groupBy != GroupByAccountManager {
		return Table{}, fmt.Errorf("%w: %q", ErrMissingGroupKey, groupBy)
	}
	cfg = cfg.OrDefault()
	columns := cfg.Columns()

	groups := make(map[string]*PivotRow)
	keys := make([]string, 0)
	for _, inv := range invoices {
		key := groupKey(inv, groupBy)
		if key == "" {
			continue
		}
		row, ok := groups[key]
		if !ok {
			r := newRow(key, columns)
			row = &r
			groups[key] = row
			keys = append(keys, key)
		}
		label := Classify(inv.DaysOverdue, cfg)
		amount := inv.InvoiceAmount
		row.Buckets[label] = row.Buckets[label].Add(amount)
		row.Total = row.Total.Add(amount)
	}
	sort.Strings(keys)

	grand := newRow(GrandTotalKey, columns)
	rows := make([]PivotRow, 0, len(keys)+1)
	for _, key := range keys {
		row := *groups[key]
		for _, col := range columns {
			grand.Buckets[col] = grand.Buckets[col].Add(row.Buckets[col])
		}
		grand.Total = grand.Total.Add(row.Total)
		rows = append(rows, row)
	}
	rows = append(rows, grand)

	return Table{
		GroupBy:   groupBy,
		KeyColumn: groupBy.Column(),
		Columns:   columns,
		Rows:      rows,
	}, nil
}

// IsOverdueHighlight flags rows with a positive overflow amount, never the Grand Total.
func IsOverdueHighlight(row PivotRow, overflowLabel string) bool {
	if row.IsGrandTotal() {
		return false
	}
	return row.Amount(overflowLabel).GreaterThan(decimal.Zero)
}

func groupKey(inv Invoice, groupBy GroupBy) string {
	customer := strings.TrimSpace(inv.CustomerName)
	if customer == "" {
		return ""
	}
	if groupBy == GroupByAccountManager {
		if am := strings.TrimSpace(inv.AccountManager); am != "" {
			return am
		}
	}
	return customer
}

func newRow(key string, columns []string) PivotRow {
	buckets := make(map[string]decimal.Decimal, len(columns))
	for _, col := range columns {
		buckets[col] = decimal.Zero
	}
	return PivotRow{Key: key, Buckets: buckets, Total: decimal.Zero}
}

package ar

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field enumerates the canonical receivable columns.
type Field string

const (
	FieldCustomer       Field = "Customer Name"
	FieldAccountManager Field = "Account Manager"
	FieldInvoiceNumber  Field = "Invoice No."
	FieldInvoiceAmount  Field = "Invoice Amount"
	FieldInvoiceDate    Field = "Invoice Date"
	FieldDueDate        Field = "Due Date"
	FieldPaidAmount     Field = "Paid Amount"
	FieldDueAmount      Field = "Due Amount"
	FieldStatus         Field = "Payment Status"
)

// Alias maps header keywords to a canonical field.
type Alias struct {
	Field    Field
	Keywords []string
}

// DefaultAliases is resolved top to bottom; a header is claimed by the first
// field that matches it, so narrower amount columns come before "amount".
var DefaultAliases = []Alias{
	{Field: FieldDueAmount, Keywords: []string{"due amount", "dueamount", "amount due", "balance due", "outstanding amount", "amount outstanding", "balance"}},
	{Field: FieldPaidAmount, Keywords: []string{"paid amount", "paidamount", "amount paid", "received amount"}},
	{Field: FieldInvoiceAmount, Keywords: []string{"invoice amount", "invoice amt", "invoice value", "amount"}},
	{Field: FieldInvoiceNumber, Keywords: []string{"invoice no", "invoice number", "invoice #", "inv no", "bill no"}},
	{Field: FieldInvoiceDate, Keywords: []string{"invoice date", "invoice dt", "bill date"}},
	{Field: FieldDueDate, Keywords: []string{"due date", "duedate", "due dt"}},
	{Field: FieldAccountManager, Keywords: []string{"account manager", "owner", "manager"}},
	{Field: FieldCustomer, Keywords: []string{"customer name", "customer", "client", "party"}},
	{Field: FieldStatus, Keywords: []string{"payment status", "status", "paid/unpaid"}},
}

var headerKeywords = []string{"customer", "invoice", "due", "amount", "payment"}

const defaultHeaderScan = 10

// Mapping records which header feeds each canonical field.
type Mapping map[Field]int

// Has reports whether the field was resolved.
func (m Mapping) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// FindHeaderRow returns the first row, within maxScan, that mentions at least
// two receivable keywords. It falls back to row 0.
func FindHeaderRow(rows [][]string, maxScan int) int {
	if maxScan <= 0 {
		maxScan = defaultHeaderScan
	}
	for i := 0; i < len(rows) && i < maxScan; i++ {
		cells := make([]string, len(rows[i]))
		for j, c := range rows[i] {
			cells[j] = normalizeHeader(c)
		}
		hits := 0
		for _, kw := range headerKeywords {
			for _, cell := range cells {
				if strings.Contains(cell, kw) {
					hits++
					break
				}
			}
		}
		if hits >= 2 {
			return i
		}
	}
	return 0
}

// ResolveColumns maps headers onto canonical fields. Explicit overrides win
// and must match a header exactly after normalisation.
func ResolveColumns(headers []string, aliases []Alias, overrides map[Field]string) Mapping {
	if aliases == nil {
		aliases = DefaultAliases
	}
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}
	claimed := make(map[int]bool, len(headers))
	mapping := make(Mapping)

	for field, header := range overrides {
		want := normalizeHeader(header)
		if want == "" {
			continue
		}
		for i, h := range normalized {
			if h == want && !claimed[i] {
				mapping[field] = i
				claimed[i] = true
				break
			}
		}
	}

	for _, alias := range aliases {
		if mapping.Has(alias.Field) {
			continue
		}
	search:
		for _, kw := range alias.Keywords {
			kw = normalizeHeader(kw)
			for i, h := range normalized {
				if claimed[i] || h == "" {
					continue
				}
				if strings.Contains(h, kw) {
					mapping[alias.Field] = i
					claimed[i] = true
					break search
				}
			}
		}
	}
	return mapping
}

// normalizeHeader lowercases, strips accents and collapses separators.
func normalizeHeader(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', ' ', '\t', '\n', '\r':
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

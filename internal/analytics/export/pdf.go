package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/odyssey-erp/ardash/internal/analytics"
	"github.com/odyssey-erp/ardash/internal/analytics/ui"
)

// Renderer converts an HTML document into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// PDFExporter renders a report to HTML and hands it to a Renderer (Gotenberg).
type PDFExporter struct {
	Renderer Renderer
	Company  string
}

type pdfPayload struct {
	Company  string
	Dataset  string
	AsOf     string
	Filter   analytics.ReportFilter
	KPIs     []ui.KPICard
	Key      string
	Columns  []string
	Rows     []ui.PivotRow
	Empty    bool
	Warnings []string
}

var pdfTemplate = template.Must(template.New("aging-pdf").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>AR Aging {{.AsOf}}</title>
<style>
body{font-family:sans-serif;margin:24px;color:#1f2937;}
h1{font-size:20px;margin-bottom:4px;}
.meta{color:#64748b;font-size:12px;margin-bottom:16px;}
.kpis{display:flex;gap:12px;margin-bottom:16px;}
.kpi{border:1px solid #e2e8f0;padding:8px 12px;border-radius:4px;}
.kpi span{display:block;font-size:11px;color:#64748b;}
table{width:100%;border-collapse:collapse;font-size:12px;}
th,td{border:1px solid #ddd;padding:6px;text-align:right;}
th{background:#f5f5f5;}
td.key,th.key{text-align:left;}
tr.overdue td{background:#FFE6E6;}
tr.grand td{font-weight:bold;}
.warn{color:#b45309;font-size:12px;}
</style></head><body>
<h1>{{if .Company}}{{.Company}} · {{end}}Accounts Receivable Aging</h1>
<div class="meta">As of {{.AsOf}}{{if .Dataset}} · {{.Dataset}}{{end}}{{with .Filter.AccountManager}} · AM: {{.}}{{end}}{{with .Filter.Customer}} · Customer: {{.}}{{end}}</div>
{{range .Warnings}}<p class="warn">{{.}}</p>{{end}}
<div class="kpis">{{range .KPIs}}<div class="kpi"><span>{{.Label}}</span>{{.Value}}</div>{{end}}</div>
{{if .Empty}}<p>No data to show after filtering.</p>{{end}}
<table><thead><tr><th>S.No</th><th class="key">{{.Key}}</th>{{range .Columns}}<th>{{.}}</th>{{end}}<th>Total</th></tr></thead>
<tbody>{{range .Rows}}<tr class="{{if .Highlight}}overdue{{end}}{{if .GrandTotal}}grand{{end}}"><td>{{if .Index}}{{.Index}}{{end}}</td><td class="key">{{.Key}}</td>{{range .Cells}}<td>{{.}}</td>{{end}}<td>{{.Total}}</td></tr>{{end}}</tbody>
</table>
</body></html>`))

// RenderHTML builds the printable HTML for a report.
func (p *PDFExporter) RenderHTML(report *analytics.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("export: report required")
	}
	vm, err := ui.BuildDashboard(report, ui.DashboardFilters{}, nil)
	if err != nil {
		return "", err
	}
	payload := pdfPayload{
		Company: p.Company,
		Dataset: report.DatasetName,
		AsOf:    vm.AsOf,
		Filter:  report.Filter,
		KPIs:    vm.KPIs,
		Key:     vm.KeyColumn,
		Columns: vm.Columns,
		Rows:    vm.Rows,
		Empty:   vm.Empty,
	}
	for _, w := range []string{report.BucketWarning, report.GroupingNotice} {
		if w != "" {
			payload.Warnings = append(payload.Warnings, w)
		}
	}
	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render produces the PDF document for a report.
func (p *PDFExporter) Render(ctx context.Context, report *analytics.Report) ([]byte, error) {
	if p == nil || p.Renderer == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	html, err := p.RenderHTML(report)
	if err != nil {
		return nil, err
	}
	return p.Renderer.RenderHTML(ctx, html)
}

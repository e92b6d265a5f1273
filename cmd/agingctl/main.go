// Command agingctl prints the AR aging pivot for a workbook on disk and can
// write the same report as xlsx or csv.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/ardash/internal/aging"
	"github.com/odyssey-erp/ardash/internal/analytics"
	"github.com/odyssey-erp/ardash/internal/analytics/export"
	"github.com/odyssey-erp/ardash/internal/analytics/ui"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Default().Error("agingctl", slog.Any("error", err))
		os.Exit(1)
	}
}

type options struct {
	file     string
	view     string
	am       string
	customer string
	limits   [3]string
	asOf     string
	dayFirst bool
	format   string
	xlsxPath string
	csvPath  string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("agingctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "", "receivables workbook (.xlsx, .xls or .csv)")
	fs.StringVar(&opts.view, "view", string(aging.GroupByCustomer), "customer or account_manager")
	fs.StringVar(&opts.am, "am", analytics.FilterAll, "account manager filter")
	fs.StringVar(&opts.customer, "customer", analytics.FilterAll, "customer filter")
	fs.StringVar(&opts.limits[0], "b1", "30", "upper limit of bucket 1 in days")
	fs.StringVar(&opts.limits[1], "b2", "60", "upper limit of bucket 2 in days")
	fs.StringVar(&opts.limits[2], "b3", "90", "upper limit of bucket 3 in days")
	fs.StringVar(&opts.asOf, "as-of", "", "aging date YYYY-MM-DD (default today)")
	fs.BoolVar(&opts.dayFirst, "day-first", false, "read ambiguous dates as DD/MM")
	fs.StringVar(&opts.format, "format", "text", "stdout format: text or json")
	fs.StringVar(&opts.xlsxPath, "xlsx", "", "also write the report workbook here")
	fs.StringVar(&opts.csvPath, "csv", "", "also write the pivot and invoices csv here")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if strings.TrimSpace(opts.file) == "" {
		fs.Usage()
		return options{}, errors.New("-file is required")
	}
	if opts.format != "text" && opts.format != "json" {
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	return opts, nil
}

func (o options) filter() (analytics.ReportFilter, error) {
	groupBy, err := aging.ParseGroupBy(o.view)
	if err != nil {
		return analytics.ReportFilter{}, err
	}
	filter := analytics.ReportFilter{
		DatasetID:      analytics.LinkedDatasetID,
		AccountManager: o.am,
		Customer:       o.customer,
		GroupBy:        groupBy,
		Limits:         analytics.ParseLimits(o.limits[:]...),
	}
	if o.asOf != "" {
		asOf, err := time.Parse("2006-01-02", o.asOf)
		if err != nil {
			return analytics.ReportFilter{}, fmt.Errorf("invalid -as-of: %w", err)
		}
		filter.AsOf = asOf
	}
	return filter, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	filter, err := opts.filter()
	if err != nil {
		return err
	}

	svc := analytics.NewService(nil, analytics.Config{LinkedWorkbook: opts.file, DayFirst: opts.dayFirst}, nil)
	report, err := svc.Report(ctx, filter)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	if opts.xlsxPath != "" {
		g.Go(func() error {
			return writeFile(opts.xlsxPath, func(w io.Writer) error { return export.WriteWorkbook(w, report) })
		})
	}
	if opts.csvPath != "" {
		g.Go(func() error {
			return writeFile(opts.csvPath, func(w io.Writer) error {
				if err := export.WritePivotCSV(w, report.Table); err != nil {
					return err
				}
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
				return export.WriteInvoicesCSV(w, report.Invoices)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(stdout, report)
}

func printReport(w io.Writer, report *analytics.Report) error {
	if report.BucketWarning != "" {
		fmt.Fprintf(w, "warning: %s\n", report.BucketWarning)
	}
	if report.GroupingNotice != "" {
		fmt.Fprintf(w, "note: %s\n", report.GroupingNotice)
	}
	fmt.Fprintf(w, "%s as of %s\n\n", report.DatasetName, report.AsOf.Format("2006-01-02"))
	if report.Empty() {
		_, err := fmt.Fprintln(w, "No data to show after filtering.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s\tTotal\t\n", report.Table.KeyColumn, strings.Join(report.Table.Columns, "\t"))
	for _, row := range report.Table.Rows {
		cells := make([]string, 0, len(report.Table.Columns))
		for _, col := range report.Table.Columns {
			cells = append(cells, ui.FormatAmount(row.Amount(col)))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", row.Key, strings.Join(cells, "\t"), ui.FormatAmount(row.Total))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	kpi := report.KPI
	_, err := fmt.Fprintf(w, "\nTotal %s  Paid %s  Unpaid %s  Paid ratio %s%%\n",
		ui.FormatAmount(kpi.TotalReceivable), ui.FormatAmount(kpi.Paid), ui.FormatAmount(kpi.Unpaid), kpi.PaidRatio.StringFixed(1))
	return err
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

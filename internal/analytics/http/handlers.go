package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/ardash/internal/aging"
	"github.com/odyssey-erp/ardash/internal/analytics"
	"github.com/odyssey-erp/ardash/internal/analytics/export"
	"github.com/odyssey-erp/ardash/internal/analytics/ui"
	"github.com/odyssey-erp/ardash/internal/ar"
	"github.com/odyssey-erp/ardash/internal/platform/httpx"
	"github.com/odyssey-erp/ardash/internal/view"
)

const (
	requestTimeout        = 10 * time.Second
	defaultMaxUploadBytes = 20 << 20
	dashboardTemplate     = "pages/dashboard.html"
	asOfLayout            = "2006-01-02"
)

// ReportService defines the dataset and report contract used by the handler.
type ReportService interface {
	Upload(ctx context.Context, r io.Reader, filename string) (analytics.Dataset, error)
	Report(ctx context.Context, filter analytics.ReportFilter) (*analytics.Report, error)
	HasLinkedWorkbook() bool
}

// PDFService renders a report to PDF bytes.
type PDFService interface {
	Render(ctx context.Context, report *analytics.Report) ([]byte, error)
}

// Options tunes the handler.
type Options struct {
	Company        string
	MaxUploadBytes int64
}

// Handler coordinates HTTP requests for the AR aging dashboard.
type Handler struct {
	logger    *slog.Logger
	service   ReportService
	templates *view.Engine
	bar       ui.BarRenderer
	pdf       PDFService
	opts      Options
	csvPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the AR aging HTTP handler. bar and pdf may be nil.
func NewHandler(logger *slog.Logger, service ReportService, templates *view.Engine, bar ui.BarRenderer, pdf PDFService, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		bar:       bar,
		pdf:       pdf,
		opts:      opts,
		now:       time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	if filter.DatasetID == "" && !h.service.HasLinkedWorkbook() {
		h.renderDashboard(w, r, http.StatusOK, nil, filters, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, filter)
	if err != nil {
		if errors.Is(err, analytics.ErrDatasetNotFound) {
			filters.DatasetID = ""
			h.renderDashboard(w, r, http.StatusNotFound, nil, filters, &view.Flash{
				Kind:    "error",
				Message: "The uploaded file has expired or was never stored. Upload it again.",
			})
			return
		}
		h.handleServerError(w, "load report", err)
		return
	}
	h.renderDashboard(w, r, http.StatusOK, report, filters, nil)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.opts.MaxUploadBytes {
		h.renderUploadError(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderUploadError(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		h.renderUploadError(w, r, http.StatusBadRequest, "Choose a workbook to upload.")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ds, err := h.service.Upload(ctx, file, header.Filename)
	switch {
	case err == nil:
	case errors.Is(err, ar.ErrNoCustomerColumn):
		h.renderUploadError(w, r, http.StatusUnprocessableEntity, "Customer Name column not found. Check the header row of the sheet.")
		return
	case errors.Is(err, ar.ErrUnsupportedFormat):
		h.renderUploadError(w, r, http.StatusUnprocessableEntity, "Unsupported file type. Upload an .xlsx, .xls or .csv file.")
		return
	case errors.Is(err, ar.ErrEmptyWorkbook):
		h.renderUploadError(w, r, http.StatusUnprocessableEntity, "The uploaded sheet is empty.")
		return
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderUploadError(w, r, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		h.logError("upload dataset", err)
		h.renderUploadError(w, r, http.StatusUnprocessableEntity, "The file could not be read.")
		return
	}

	if h.logger != nil {
		h.logger.Info("dataset uploaded",
			slog.String("dataset", ds.ID),
			slog.String("file", ds.Name),
			slog.Int("invoices", len(ds.Invoices)),
			slog.Int("skipped", ds.Skipped.Total()),
		)
	}
	http.Redirect(w, r, "/ar?dataset="+url.QueryEscape(ds.ID), http.StatusSeeOther)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.exportReport(w, r)
	if !ok {
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WritePivotCSV(buf, report.Table); err != nil {
		h.handleServerError(w, "write pivot csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteInvoicesCSV(buf, report.Invoices); err != nil {
		h.handleServerError(w, "write invoice csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(report, "csv"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := h.exportReport(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report); err != nil {
		h.handleServerError(w, "write workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment(report, "xlsx"))
	if _, err := buf.WriteTo(w); err != nil {
		h.logError("stream xlsx", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.handleServerError(w, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}
	report, ok := h.exportReport(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pdfBytes, err := h.pdf.Render(ctx, report)
	if err != nil {
		h.handleServerError(w, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment(report, "pdf"))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	filter, _, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if filter.DatasetID == "" && !h.service.HasLinkedWorkbook() {
		httpx.RespondError(w, r, fmt.Errorf("%w: dataset required", httpx.ErrNotFound))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, filter)
	if err != nil {
		if errors.Is(err, analytics.ErrDatasetNotFound) {
			httpx.RespondError(w, r, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
			return
		}
		h.logError("api report", err)
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// exportReport loads the report behind an export link. It writes the error
// response itself and reports false when the caller should stop.
func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request) (*analytics.Report, bool) {
	filter, _, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return nil, false
	}
	if filter.DatasetID == "" && !h.service.HasLinkedWorkbook() {
		http.Error(w, "No dataset selected", http.StatusNotFound)
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.Report(ctx, filter)
	if err != nil {
		if errors.Is(err, analytics.ErrDatasetNotFound) {
			http.Error(w, "Dataset not found", http.StatusNotFound)
			return nil, false
		}
		h.handleServerError(w, "load report", err)
		return nil, false
	}
	return report, true
}

func (h *Handler) parseFilters(r *http.Request) (analytics.ReportFilter, ui.DashboardFilters, error) {
	q := r.URL.Query()
	get := func(key string) string { return strings.TrimSpace(q.Get(key)) }

	groupBy := aging.GroupByCustomer
	if raw := get("view"); raw != "" {
		parsed, err := aging.ParseGroupBy(raw)
		if err != nil {
			return analytics.ReportFilter{}, ui.DashboardFilters{}, validationError{field: "view"}
		}
		groupBy = parsed
	}

	var asOf time.Time
	if raw := get("as_of"); raw != "" {
		parsed, err := time.Parse(asOfLayout, raw)
		if err != nil {
			return analytics.ReportFilter{}, ui.DashboardFilters{}, validationError{field: "as_of"}
		}
		asOf = parsed
	}

	filter := analytics.ReportFilter{
		DatasetID:      get("dataset"),
		AccountManager: get("am"),
		Customer:       get("customer"),
		GroupBy:        groupBy,
		Limits:         analytics.ParseLimits(get("b1"), get("b2"), get("b3")),
		AsOf:           asOf,
		DetailCustomer: get("detail"),
	}
	filters := ui.DashboardFilters{
		DatasetID:      filter.DatasetID,
		AccountManager: filter.AccountManager,
		Customer:       filter.Customer,
		View:           groupBy,
		Limits:         [3]string{get("b1"), get("b2"), get("b3")},
		AsOf:           get("as_of"),
		Detail:         filter.DetailCustomer,
	}
	return filter, filters, nil
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, report *analytics.Report, filters ui.DashboardFilters, flash *view.Flash) {
	if report != nil {
		filters.Limits = ui.LimitStrings(report.Buckets)
		filters.AsOf = report.AsOf.Format(asOfLayout)
	}
	vm, err := ui.BuildDashboard(report, filters, h.bar)
	if err != nil {
		h.handleServerError(w, "render charts", err)
		return
	}
	data := view.TemplateData{
		Title:       "AR Aging",
		Company:     h.opts.Company,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if err := h.templates.RenderStatus(w, status, dashboardTemplate, data); err != nil {
		h.handleServerError(w, "render template", err)
	}
}

func (h *Handler) renderUploadError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.renderDashboard(w, r, status, nil, ui.DashboardFilters{View: aging.GroupByCustomer}, &view.Flash{Kind: "error", Message: message})
}

func (h *Handler) tooLargeMessage() string {
	limit := h.opts.MaxUploadBytes >> 20
	if limit < 1 {
		return fmt.Sprintf("The file is larger than %d bytes.", h.opts.MaxUploadBytes)
	}
	return fmt.Sprintf("The file is larger than %d MiB.", limit)
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var vErr validationError
	if errors.As(err, &vErr) {
		http.Error(w, "Invalid parameter: "+vErr.field, http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "parse filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

func attachment(report *analytics.Report, ext string) string {
	return fmt.Sprintf("attachment; filename=\"ar-aging-%s-%s.%s\"", report.Table.GroupBy, report.AsOf.Format(asOfLayout), ext)
}

// HandleDashboardForTest exposes the dashboard handler for tests.
func (h *Handler) HandleDashboardForTest(w http.ResponseWriter, r *http.Request) {
	h.handleDashboard(w, r)
}

// HandleUploadForTest exposes the upload handler for tests.
func (h *Handler) HandleUploadForTest(w http.ResponseWriter, r *http.Request) { h.handleUpload(w, r) }

// HandlePDFForTest exposes the PDF handler for tests.
func (h *Handler) HandlePDFForTest(w http.ResponseWriter, r *http.Request) { h.handlePDF(w, r) }

// HandleCSVForTest exposes the CSV handler for tests.
func (h *Handler) HandleCSVForTest(w http.ResponseWriter, r *http.Request) { h.handleCSV(w, r) }

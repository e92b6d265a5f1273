package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/ardash/internal/aging"
	"github.com/odyssey-erp/ardash/internal/ar"
)

// LinkedDatasetID addresses the workbook configured on the server.
const LinkedDatasetID = "linked"

// ErrDatasetNotFound is returned when an upload expired or was never stored.
var ErrDatasetNotFound = errors.New("analytics: dataset not found")

// Dataset is a cleaned receivable sheet ready for reporting.
type Dataset struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Source            string              `json:"source"`
	LoadedAt          time.Time           `json:"loaded_at"`
	HasAccountManager bool                `json:"has_account_manager"`
	Columns           map[ar.Field]string `json:"columns"`
	HeaderRow         int                 `json:"header_row"`
	Skipped           ar.SkipCounts       `json:"skipped"`
	Invoices          []aging.Invoice     `json:"invoices"`
}

// IngestRecorder receives the outcome of every file that is parsed.
type IngestRecorder interface {
	ObserveIngest(source, format string, loaded int, skipped ar.SkipCounts, err error)
}

// Config tunes dataset handling.
type Config struct {
	UploadTTL      time.Duration
	LinkedWorkbook string
	DayFirst       bool
}

// Service coordinates dataset loading and report building with the cache layer.
type Service struct {
	cache  *Cache
	cfg    Config
	ingest IngestRecorder
	now    func() time.Time
}

// NewService wires a Cache helper with dataset settings. recorder may be nil.
func NewService(cache *Cache, cfg Config, recorder IngestRecorder) *Service {
	if cache == nil {
		cache = NewCache(nil, 0)
	}
	return &Service{cache: cache, cfg: cfg, ingest: recorder, now: time.Now}
}

// HasLinkedWorkbook reports whether a server-side workbook is configured.
func (s *Service) HasLinkedWorkbook() bool {
	return strings.TrimSpace(s.cfg.LinkedWorkbook) != ""
}

// Upload parses an uploaded spreadsheet and stores it under a fresh ID.
func (s *Service) Upload(ctx context.Context, r io.Reader, filename string) (Dataset, error) {
	ds, err := s.parse(r, filename, "upload")
	if err != nil {
		return Dataset{}, err
	}
	ds.ID = uuid.NewString()
	if err := s.cache.StoreJSON(ctx, keyDataset(ds.ID), ds, s.cfg.UploadTTL); err != nil {
		return Dataset{}, fmt.Errorf("analytics: store dataset: %w", err)
	}
	return ds, nil
}

// Dataset resolves an uploaded dataset by ID; an empty ID or "linked" selects
// the configured workbook.
func (s *Service) Dataset(ctx context.Context, id string) (Dataset, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == LinkedDatasetID {
		return s.linkedDataset(ctx)
	}
	if _, err := uuid.Parse(id); err != nil {
		return Dataset{}, fmt.Errorf("%w: %q", ErrDatasetNotFound, id)
	}
	var ds Dataset
	found, err := s.cache.LoadJSON(ctx, keyDataset(id), &ds)
	if err != nil {
		return Dataset{}, fmt.Errorf("analytics: load dataset: %w", err)
	}
	if !found {
		return Dataset{}, fmt.Errorf("%w: %q", ErrDatasetNotFound, id)
	}
	return ds, nil
}

// RefreshLinked drops cached reports and reloads the configured workbook.
func (s *Service) RefreshLinked(ctx context.Context) (Dataset, error) {
	if !s.HasLinkedWorkbook() {
		return Dataset{}, nil
	}
	if err := s.cache.Bump(ctx); err != nil {
		return Dataset{}, fmt.Errorf("analytics: bump cache: %w", err)
	}
	return s.linkedDataset(ctx)
}

// Report loads the filter's dataset and builds the aging report for it.
func (s *Service) Report(ctx context.Context, filter ReportFilter) (*Report, error) {
	ds, err := s.Dataset(ctx, filter.DatasetID)
	if err != nil {
		return nil, err
	}
	if filter.AsOf.IsZero() {
		filter.AsOf = s.now().UTC()
	}
	return BuildReport(ds, filter)
}

func (s *Service) linkedDataset(ctx context.Context) (Dataset, error) {
	path := strings.TrimSpace(s.cfg.LinkedWorkbook)
	if path == "" {
		return Dataset{}, fmt.Errorf("%w: no workbook linked", ErrDatasetNotFound)
	}
	loader := func(ctx context.Context) (interface{}, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("analytics: open linked workbook: %w", err)
		}
		defer func() { _ = f.Close() }()
		ds, err := s.parse(f, path, "linked")
		if err != nil {
			return nil, err
		}
		ds.ID = LinkedDatasetID
		return ds, nil
	}
	key, err := s.cache.BuildKey(ctx, keyLinked(path, s.cfg.DayFirst))
	if err != nil {
		return Dataset{}, err
	}
	var ds Dataset
	if err := s.cache.FetchJSON(ctx, key, &ds, loader); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func (s *Service) parse(r io.Reader, filename, source string) (Dataset, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	res, err := ar.Load(r, filename, ar.Options{AsOf: s.now().UTC(), DayFirst: s.cfg.DayFirst})
	if err != nil {
		s.observe(source, format, 0, ar.SkipCounts{}, err)
		return Dataset{}, err
	}
	s.observe(source, format, len(res.Invoices), res.Skipped, nil)
	return Dataset{
		Name:              filepath.Base(filename),
		Source:            source,
		LoadedAt:          s.now().UTC(),
		HasAccountManager: res.HasAccountManager(),
		Columns:           res.Columns,
		HeaderRow:         res.HeaderRow,
		Skipped:           res.Skipped,
		Invoices:          res.Invoices,
	}, nil
}

func (s *Service) observe(source, format string, loaded int, skipped ar.SkipCounts, err error) {
	if s.ingest == nil {
		return
	}
	s.ingest.ObserveIngest(source, format, loaded, skipped, err)
}

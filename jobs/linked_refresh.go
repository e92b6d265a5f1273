package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ardash/internal/analytics"
	"github.com/odyssey-erp/ardash/internal/analytics/export"
	jobmetrics "github.com/odyssey-erp/ardash/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LinkedRefresher reloads the configured workbook and reports on it.
type LinkedRefresher interface {
	HasLinkedWorkbook() bool
	RefreshLinked(ctx context.Context) (analytics.Dataset, error)
	Report(ctx context.Context, filter analytics.ReportFilter) (*analytics.Report, error)
}

// LinkedRefreshJob drops cached reports, re-parses the linked workbook and
// optionally writes a dated xlsx snapshot of the customer-wise pivot.
type LinkedRefreshJob struct {
	Analytics   LinkedRefresher
	SnapshotDir string
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	clock       func() time.Time
}

// NewLinkedRefreshJob wires dependencies for the refresh handler.
func NewLinkedRefreshJob(svc LinkedRefresher, snapshotDir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *LinkedRefreshJob {
	return &LinkedRefreshJob{
		Analytics:   svc,
		SnapshotDir: snapshotDir,
		Logger:      logger,
		Metrics:     metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes linked refresh tasks.
func (j *LinkedRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("linked refresh: handler not configured")
	}
	var payload LinkedRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(slog.String("reason", payload.Reason))
	if !j.Analytics.HasLinkedWorkbook() {
		logger.Info("no linked workbook configured, skipping")
		return nil
	}

	tracker := j.metrics().Track(TaskLinkedRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	logger.Info("starting linked refresh")

	refreshCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	ds, err := j.Analytics.RefreshLinked(refreshCtx)
	if err != nil {
		resultErr = err
		logger.Error("refresh linked workbook", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetDatasetInvoices(analytics.LinkedDatasetID, len(ds.Invoices))

	if payload.Snapshot && j.SnapshotDir != "" {
		path, err := j.writeSnapshot(refreshCtx, start)
		if err != nil {
			resultErr = err
			logger.Error("write snapshot", slog.Any("error", err))
			return resultErr
		}
		logger.Info("wrote aging snapshot", slog.String("path", path))
	}

	logger.Info("completed linked refresh",
		slog.Int("invoices", len(ds.Invoices)),
		slog.Int("skipped", ds.Skipped.Total()),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *LinkedRefreshJob) writeSnapshot(ctx context.Context, asOf time.Time) (string, error) {
	report, err := j.Analytics.Report(ctx, analytics.ReportFilter{DatasetID: analytics.LinkedDatasetID, AsOf: asOf})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(j.SnapshotDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(j.SnapshotDir, fmt.Sprintf("ar-aging-%s.xlsx", asOf.Format("2006-01-02")))
	tmp, err := os.CreateTemp(j.SnapshotDir, ".ar-aging-*.xlsx")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := export.WriteWorkbook(tmp, report); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

func (j *LinkedRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLinkedRefresh))
	}
	return slog.Default().With(slog.String("job", TaskLinkedRefresh))
}

func (j *LinkedRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LinkedRefreshJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ardash/internal/aging"
	"github.com/odyssey-erp/ardash/internal/analytics"
	jobmetrics "github.com/odyssey-erp/ardash/internal/jobs"
)

type stubRefresher struct {
	linked     bool
	refreshErr error
	refreshed  int
	filters    []analytics.ReportFilter
	dataset    analytics.Dataset
}

func (s *stubRefresher) HasLinkedWorkbook() bool { return s.linked }

func (s *stubRefresher) RefreshLinked(ctx context.Context) (analytics.Dataset, error) {
	s.refreshed++
	if s.refreshErr != nil {
		return analytics.Dataset{}, s.refreshErr
	}
	return s.dataset, nil
}

func (s *stubRefresher) Report(ctx context.Context, filter analytics.ReportFilter) (*analytics.Report, error) {
	s.filters = append(s.filters, filter)
	return analytics.BuildReport(s.dataset, filter)
}

func sampleDataset() analytics.Dataset {
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return analytics.Dataset{
		ID:   analytics.LinkedDatasetID,
		Name: "linked.xlsx",
		Invoices: []aging.Invoice{
			{Number: "INV-1", CustomerName: "Acme", InvoiceAmount: decimal.NewFromInt(120), DueAmount: decimal.NewFromInt(120), DueDate: &due},
			{Number: "INV-2", CustomerName: "Beta", InvoiceAmount: decimal.NewFromInt(40), DueAmount: decimal.NewFromInt(40), DueDate: &due},
		},
	}
}

func newTestJob(t *testing.T, svc LinkedRefresher, dir string) (*LinkedRefreshJob, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	job := NewLinkedRefreshJob(svc, dir, nil, jobmetrics.NewMetrics(registry))
	job.clock = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return job, registry
}

func refreshTask(t *testing.T, reason string, snapshot bool) *asynq.Task {
	t.Helper()
	task, err := NewLinkedRefreshTask(reason, snapshot)
	require.NoError(t, err)
	return task
}

func TestLinkedRefreshWritesSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	svc := &stubRefresher{linked: true, dataset: sampleDataset()}
	job, registry := newTestJob(t, svc, dir)

	require.NoError(t, job.Handle(context.Background(), refreshTask(t, "snapshot", true)))

	assert.Equal(t, 1, svc.refreshed)
	require.Len(t, svc.filters, 1)
	assert.Equal(t, analytics.LinkedDatasetID, svc.filters[0].DatasetID)
	assert.Equal(t, "2025-03-01", svc.filters[0].AsOf.Format("2006-01-02"))

	info, err := os.Stat(filepath.Join(dir, "ar-aging-2025-03-01.xlsx"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")

	count, err := testutil.GatherAndCount(registry, "ardash_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLinkedRefreshWithoutSnapshot(t *testing.T) {
	dir := t.TempDir()
	svc := &stubRefresher{linked: true, dataset: sampleDataset()}
	job, registry := newTestJob(t, svc, dir)

	require.NoError(t, job.Handle(context.Background(), refreshTask(t, "cron", false)))

	assert.Equal(t, 1, svc.refreshed)
	assert.Empty(t, svc.filters)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	count, err := testutil.GatherAndCount(registry, "ardash_dataset_invoices")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLinkedRefreshSkipsWithoutWorkbook(t *testing.T) {
	svc := &stubRefresher{}
	job, _ := newTestJob(t, svc, t.TempDir())

	require.NoError(t, job.Handle(context.Background(), refreshTask(t, "", false)))
	assert.Zero(t, svc.refreshed)
}

func TestLinkedRefreshPropagatesFailure(t *testing.T) {
	boom := errors.New("workbook locked")
	svc := &stubRefresher{linked: true, refreshErr: boom}
	job, registry := newTestJob(t, svc, t.TempDir())

	err := job.Handle(context.Background(), refreshTask(t, "cron", false))
	require.ErrorIs(t, err, boom)

	count, err := testutil.GatherAndCount(registry, "ardash_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLinkedRefreshBadPayload(t *testing.T) {
	svc := &stubRefresher{linked: true}
	job, _ := newTestJob(t, svc, "")

	err := job.Handle(context.Background(), asynq.NewTask(TaskLinkedRefresh, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, svc.refreshed)
}

func TestLinkedRefreshNotConfigured(t *testing.T) {
	var job *LinkedRefreshJob
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskLinkedRefresh, nil)))
}

func TestNewLinkedRefreshTaskDefaultsReason(t *testing.T) {
	task, err := NewLinkedRefreshTask("  ", true)
	require.NoError(t, err)
	assert.Equal(t, TaskLinkedRefresh, task.Type())
	assert.JSONEq(t, `{"reason":"manual","snapshot":true}`, string(task.Payload()))
}

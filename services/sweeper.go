package services

import (
	"context"
	"fmt"
	"time"

	"report-hub/metrics"
	"report-hub/uploads"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OrphanSweeper removes uploaded files that no report points at. Files younger
// than grace are skipped so an upload whose report is still being written is
// not taken away.
type OrphanSweeper struct {
	repo    ReportRepository
	files   uploads.Lister
	grace   time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewOrphanSweeper(repo ReportRepository, files uploads.Lister, grace time.Duration, m *metrics.Metrics, log *zap.Logger) *OrphanSweeper {
	return &OrphanSweeper{repo: repo, files: files, grace: grace, metrics: m, log: log, now: time.Now}
}

// Sweep returns the names it removed. A failed removal is logged and skipped.
func (s *OrphanSweeper) Sweep(ctx context.Context) ([]string, error) {
	files, err := s.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	reports, err := s.repo.ListNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	referenced := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		if r.HasImage() {
			referenced[*r.Image] = struct{}{}
		}
	}

	cutoff := s.now().Add(-s.grace)
	var removed []string
	for _, f := range files {
		if _, ok := referenced[s.files.RefFor(f.Name)]; ok {
			continue
		}
		if f.ModTime.After(cutoff) {
			continue
		}
		if err := s.files.Remove(ctx, f.Name); err != nil {
			s.log.Warn("failed to remove orphaned upload", zap.String("name", f.Name), zap.Error(err))
			continue
		}
		removed = append(removed, f.Name)
	}

	s.metrics.OrphanUploadsDel.Add(float64(len(removed)))
	s.log.Info("orphan sweep finished", zap.Int("scanned", len(files)), zap.Int("removed", len(removed)))
	return removed, nil
}

// Schedule starts a cron runner that sweeps on spec. Stop the returned runner
// on shutdown.
func (s *OrphanSweeper) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("orphan sweep failed", zap.Error(err))
			sentry.CaptureException(err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule orphan sweep: %w", err)
	}
	c.Start()
	return c, nil
}

package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"report-hub/export"
	"report-hub/grouping"
	"report-hub/metrics"
	"report-hub/models"
	"report-hub/uploads"

	"go.uber.org/zap"
)

// ReportRepository persists reports. Insert must set the report's ID.
type ReportRepository interface {
	Insert(ctx context.Context, report *models.Report) error
	ListNewestFirst(ctx context.Context) ([]models.Report, error)
}

// Attachment is the optional file sent with a submission.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ReportService struct {
	repo     ReportRepository
	files    uploads.FileStore
	maxBytes int64
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

func NewReportService(repo ReportRepository, files uploads.FileStore, maxBytes int64, m *metrics.Metrics, log *zap.Logger) *ReportService {
	return &ReportService{
		repo:     repo,
		files:    files,
		maxBytes: maxBytes,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Create stores the attachment, if any, and persists a pending report.
//
// A file stored before a failed insert is left behind; the orphan sweep
// removes it later.
func (s *ReportService) Create(ctx context.Context, in models.CreateReportInput, att *Attachment) (models.Report, error) {
	var image *string
	if att != nil {
		if att.Size > s.maxBytes {
			s.metrics.CreateFailures.WithLabelValues(metrics.StageUpload).Inc()
			return models.Report{}, uploads.ErrFileTooLarge
		}
		stored, err := s.files.Save(ctx, att.Filename, att.ContentType, io.LimitReader(att.Body, s.maxBytes))
		if err != nil {
			s.metrics.CreateFailures.WithLabelValues(metrics.StageUpload).Inc()
			return models.Report{}, fmt.Errorf("store attachment: %w", err)
		}
		s.metrics.UploadBytes.Add(float64(stored.Size))
		s.log.Debug("attachment stored", zap.String("name", stored.Name), zap.Int64("size", stored.Size))
		image = &stored.Ref
	}

	// mongo keeps milliseconds; truncate so the response matches what a later listing returns
	report := models.NewReport(in, image, s.now().UTC().Truncate(time.Millisecond))
	if err := s.repo.Insert(ctx, &report); err != nil {
		s.metrics.CreateFailures.WithLabelValues(metrics.StagePersist).Inc()
		if image != nil {
			s.log.Warn("report not saved, attachment left orphaned", zap.String("image", *image))
		}
		return models.Report{}, fmt.Errorf("save report: %w", err)
	}

	s.metrics.ReportsCreated.Inc()
	return report, nil
}

// List returns all reports, newest first. The result is never nil.
func (s *ReportService) List(ctx context.Context) ([]models.Report, error) {
	reports, err := s.repo.ListNewestFirst(ctx)
	if err != nil {
		s.metrics.ListFailures.Inc()
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

// View derives the report board for state over the full listing.
func (s *ReportService) View(ctx context.Context, state grouping.State) (grouping.View, error) {
	reports, err := s.List(ctx)
	if err != nil {
		return grouping.View{}, err
	}
	return grouping.Derive(reports, state), nil
}

// Export renders the reports matching building and concern as an xlsx
// workbook, newest first.
func (s *ReportService) Export(ctx context.Context, building, concern string) ([]byte, error) {
	reports, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := export.WriteReports(grouping.Filter(reports, building, concern), grouping.CountGroups(reports))
	if err != nil {
		return nil, fmt.Errorf("export reports: %w", err)
	}
	return data, nil
}

package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"report-hub/export"
	"report-hub/grouping"
	"report-hub/models"
	"report-hub/services"
	"report-hub/uploads"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const imageField = "imageFile"

type ReportController struct {
	svc         *services.ReportService
	placeholder string
	log         *zap.Logger
}

func NewReportController(svc *services.ReportService, placeholder string, log *zap.Logger) *ReportController {
	return &ReportController{svc: svc, placeholder: placeholder, log: log}
}

// CreateReport handles POST /api/reports.
func (rc *ReportController) CreateReport(c *gin.Context) {
	var in models.CreateReportInput
	if err := c.ShouldBind(&in); err != nil {
		rc.badSubmission(c, err)
		return
	}

	var att *services.Attachment
	fh, err := c.FormFile(imageField)
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			rc.log.Error("open uploaded file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.Fail("Failed to read uploaded file"))
			return
		}
		defer f.Close()
		att = &services.Attachment{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		rc.badSubmission(c, err)
		return
	}

	rc.log.Debug("incoming report",
		zap.String("building", in.Building),
		zap.String("concern", in.Concern),
		zap.Bool("has_file", att != nil))

	report, err := rc.svc.Create(c.Request.Context(), in, att)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, models.Fail("File too large"))
		case errors.Is(err, uploads.ErrEmptyName):
			c.JSON(http.StatusBadRequest, models.Fail(err.Error()))
		default:
			rc.log.Error("report submission error", zap.Error(err))
			captureError(c, err)
			c.JSON(http.StatusInternalServerError, models.Fail("Failed to submit report"))
		}
		return
	}

	c.JSON(http.StatusOK, models.CreateReportResponse{Success: true, Report: report})
}

func (rc *ReportController) badSubmission(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, models.Fail("File too large"))
		return
	}
	c.JSON(http.StatusBadRequest, models.Fail("Invalid submission: "+err.Error()))
}

// GetReports handles GET /api/reports.
func (rc *ReportController) GetReports(c *gin.Context) {
	reports, err := rc.svc.List(c.Request.Context())
	if err != nil {
		rc.log.Error("fetch reports error", zap.Error(err))
		captureError(c, err)
		c.JSON(http.StatusInternalServerError, models.Fail("Error fetching reports"))
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReportView handles GET /api/reports/view.
func (rc *ReportController) GetReportView(c *gin.Context) {
	state, err := stateFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Fail(err.Error()))
		return
	}
	view, err := rc.svc.View(c.Request.Context(), state)
	if err != nil {
		rc.log.Error("fetch reports error", zap.Error(err))
		captureError(c, err)
		c.JSON(http.StatusInternalServerError, models.Fail("Error fetching reports"))
		return
	}
	c.JSON(http.StatusOK, view)
}

// ExportReports handles GET /api/reports/export.
func (rc *ReportController) ExportReports(c *gin.Context) {
	data, err := rc.svc.Export(c.Request.Context(), c.Query("building"), c.Query("concern"))
	if err != nil {
		rc.log.Error("export reports error", zap.Error(err))
		captureError(c, err)
		c.JSON(http.StatusInternalServerError, models.Fail("Error exporting reports"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="reports.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, data)
}

// stateFromQuery reads building, concern, duplicates, groupBuilding and
// groupConcern. A present groupBuilding opens the drill-down.
func stateFromQuery(c *gin.Context) (grouping.State, error) {
	state := grouping.DefaultState().
		WithBuilding(c.DefaultQuery("building", grouping.AllBuildings)).
		WithConcern(c.DefaultQuery("concern", grouping.AllConcerns))

	if v := c.Query("duplicates"); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			return grouping.State{}, errors.New("duplicates must be true or false")
		}
		state.ShowDuplicates = show
	}
	if b, ok := c.GetQuery("groupBuilding"); ok {
		state = state.Select(grouping.GroupKey{Building: b, Concern: c.Query("groupConcern")})
	}
	return state, nil
}

// stateQuery is the inverse of stateFromQuery.
func stateQuery(s grouping.State) url.Values {
	q := url.Values{}
	if s.BuildingFilter != "" && s.BuildingFilter != grouping.AllBuildings {
		q.Set("building", s.BuildingFilter)
	}
	if s.ConcernFilter != "" && s.ConcernFilter != grouping.AllConcerns {
		q.Set("concern", s.ConcernFilter)
	}
	if s.ShowDuplicates {
		q.Set("duplicates", "true")
	}
	if s.SelectedGroup != nil {
		q.Set("groupBuilding", s.SelectedGroup.Building)
		q.Set("groupConcern", s.SelectedGroup.Concern)
	}
	return q
}

func stateURL(path string, s grouping.State) string {
	if q := stateQuery(s).Encode(); q != "" {
		return path + "?" + q
	}
	return path
}

// captureError forwards a server-side failure to sentry when the request
// carries a hub.
func captureError(c *gin.Context, err error) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

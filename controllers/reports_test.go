package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"report-hub/config"
	"report-hub/controllers"
	db "report-hub/database"
	"report-hub/export"
	"report-hub/grouping"
	"report-hub/metrics"
	"report-hub/models"
	"report-hub/routes"
	"report-hub/services"
	"report-hub/uploads"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

type brokenRepo struct{}

func (brokenRepo) Insert(context.Context, *models.Report) error { return errors.New("no primary") }
func (brokenRepo) ListNewestFirst(context.Context) ([]models.Report, error) {
	return nil, errors.New("no primary")
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("down") }

func newServer(t *testing.T, repo services.ReportRepository, maxBytes int64) *gin.Engine {
	t.Helper()
	return newServerIn(t, repo, maxBytes, t.TempDir())
}

func newServerIn(t *testing.T, repo services.ReportRepository, maxBytes int64, uploadDir string) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		UploadBackend:    config.BackendLocal,
		UploadDir:        uploadDir,
		UploadMaxBytes:   maxBytes,
		CORSOrigins:      []string{"*"},
		PlaceholderImage: "/static/default.svg",
	}
	store, err := uploads.NewLocalStore(cfg.UploadDir, "/uploads/")
	require.NoError(t, err)

	m := metrics.New()
	svc := services.NewReportService(repo, store, cfg.UploadMaxBytes, m, zap.NewNop())
	r := gin.New()
	routes.SetupRoutes(r, cfg, routes.Handlers{
		Reports: controllers.NewReportController(svc, cfg.PlaceholderImage, zap.NewNop()),
		Health:  controllers.NewHealthController(nil),
		Metrics: m.Handler(),
	})
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("imageFile", fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func submit(t *testing.T, r *gin.Engine, fields map[string]string, fileName string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, fileName, file)
	req := httptest.NewRequest(http.MethodPost, "/api/reports", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

var leak = map[string]string{
	"heading":     "Leaking pipe",
	"description": "Water under the sink",
	"concern":     "Plumbing",
	"building":    "Library",
}

func TestCreateReport_WithoutFile(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)

	rec := submit(t, r, leak, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool                   `json:"success"`
		Report  map[string]interface{} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Report["id"])
	assert.Equal(t, "Pending", resp.Report["status"])
	assert.Equal(t, "Library", resp.Report["building"])
	assert.Contains(t, resp.Report, "image")
	assert.Nil(t, resp.Report["image"])

	rec = get(r, "/api/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Contains(t, listed[0], "image")
	assert.Nil(t, listed[0]["image"])
	assert.Equal(t, resp.Report["id"], listed[0]["id"])
}

func TestCreateReport_WithFileIsServed(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)

	rec := submit(t, r, leak, "photo.png", []byte("fake png bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Report.Image)
	image := *resp.Report.Image
	assert.True(t, strings.HasPrefix(image, "/uploads/"))
	assert.True(t, strings.HasSuffix(image, "-photo.png"))

	rec = get(r, image)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake png bytes", rec.Body.String())
}

func TestCreateReport_FileTooLarge(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 8)

	rec := submit(t, r, leak, "photo.png", []byte("more than eight bytes"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"File too large"}`, rec.Body.String())

	rec = get(r, "/api/reports")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateReport_MissingFieldsStillPersisted(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)

	rec := submit(t, r, map[string]string{"building": "Canteen"}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "", resp.Report.Heading)
	assert.Equal(t, "Canteen", resp.Report.Building)
}

func TestCreateReport_URLEncodedForm(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/reports",
		strings.NewReader("heading=Flicker&concern=Electrical&building=Gymnasium"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.CreateReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Gymnasium", resp.Report.Building)
	assert.Nil(t, resp.Report.Image)
}

func TestCreateReport_PersistFailure(t *testing.T) {
	r := newServer(t, brokenRepo{}, 10<<20)

	rec := submit(t, r, leak, "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to submit report"}`, rec.Body.String())
}

func TestGetReports_EmptyAndFailure(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)
	rec := get(r, "/api/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	r = newServer(t, brokenRepo{}, 10<<20)
	rec = get(r, "/api/reports")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Error fetching reports"}`, rec.Body.String())
}

func TestGetReports_NewestFirst(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)
	for _, h := range []string{"first", "second"} {
		fields := map[string]string{"heading": h, "building": "Library", "concern": "Plumbing"}
		require.Equal(t, http.StatusOK, submit(t, r, fields, "", nil).Code)
	}

	var listed []models.Report
	require.NoError(t, json.Unmarshal(get(r, "/api/reports").Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "second", listed[0].Heading)
	assert.False(t, listed[0].CreatedAt.Before(listed[1].CreatedAt))
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) grouping.View {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v grouping.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestGetReportView(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, submit(t, r, leak, "", nil).Code)
	}
	other := map[string]string{"heading": "Dark", "concern": "Electrical", "building": "Canteen"}
	require.Equal(t, http.StatusOK, submit(t, r, other, "", nil).Code)

	v := decodeView(t, get(r, "/api/reports/view"))
	require.Len(t, v.Items, 2)
	assert.Equal(t, []string{grouping.AllBuildings, "Canteen", "Library"}, v.BuildingOptions)
	assert.Equal(t, "View 1 similar report", v.Items[1].SimilarLabel)

	v = decodeView(t, get(r, "/api/reports/view?duplicates=true&building=Library"))
	require.Len(t, v.Items, 2)
	assert.Equal(t, "2 in group", v.Items[0].Badge)
	assert.Empty(t, v.Items[0].SimilarLabel)

	v = decodeView(t, get(r, "/api/reports/view?building=Canteen&groupBuilding=Library&groupConcern=Plumbing"))
	require.NotNil(t, v.SelectedGroup)
	assert.Equal(t, grouping.GroupKey{Building: "Library", Concern: "Plumbing"}, *v.SelectedGroup)
	assert.Len(t, v.Items, 2)

	rec := get(r, "/api/reports/view?duplicates=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoard(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)
	require.Equal(t, http.StatusOK, submit(t, r, leak, "", nil).Code)
	require.Equal(t, http.StatusOK, submit(t, r, map[string]string{"building": "Library", "concern": "Plumbing"}, "", nil).Code)

	rec := get(r, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Untitled Report")
	assert.Contains(t, page, "No description provided.")
	assert.Contains(t, page, "View 1 similar report")
	assert.Contains(t, page, "groupBuilding=Library")
	assert.Contains(t, page, `src="/static/default.svg"`)
	assert.Contains(t, page, `href="/api/reports/export"`)

	rec = get(r, "/?groupBuilding=Library&groupConcern=Plumbing")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Similar Reports for")
	assert.Contains(t, rec.Body.String(), "Leaking pipe")

	rec = get(r, "/static/default.svg")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)
	rec := get(r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	h := controllers.NewHealthController(downDB{})
	e := gin.New()
	e.GET("/healthz", h.Check)
	rec = get(e, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)
	require.Equal(t, http.StatusOK, submit(t, r, leak, "", nil).Code)

	rec := get(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reports_created_total 1")
}

func TestExportReports(t *testing.T) {
	r := newServer(t, db.NewMemoryReportRepository(), 10<<20)
	require.Equal(t, http.StatusOK, submit(t, r, leak, "", nil).Code)

	rec := get(r, "/api/reports/export?building=Library")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reports.xlsx")
	// xlsx is a zip archive
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	r = newServer(t, brokenRepo{}, 10<<20)
	rec = get(r, "/api/reports/export")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Error exporting reports"}`, rec.Body.String())
}

func TestUploads_OnlyStoredFilesServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "store.go"), []byte("package uploads"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1700000000000-photo.png"), []byte("png"), 0o644))
	r := newServerIn(t, db.NewMemoryReportRepository(), 10<<20, dir)

	rec := get(r, "/uploads/store.go")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "package uploads")

	rec = get(r, "/uploads/1700000000000-photo.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(r, "/uploads/1700000000000-missing.png").Code)
}

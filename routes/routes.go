package routes

import (
	"net/http"
	"path/filepath"
	"time"

	"report-hub/config"
	"report-hub/controllers"
	middlewares "report-hub/middleware"
	"report-hub/uploads"
	"report-hub/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Reports *controllers.ReportController
	Health  *controllers.HealthController
	Metrics http.Handler
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, h Handlers) {
	r.Use(corsMiddleware(cfg))

	r.SetHTMLTemplate(web.Templates())
	r.StaticFS("/static", web.Static())
	if cfg.UploadBackend == config.BackendLocal {
		r.GET("/uploads/:name", serveUpload(cfg.UploadDir))
		r.HEAD("/uploads/:name", serveUpload(cfg.UploadDir))
	}

	r.GET("/", h.Reports.Board)
	r.GET("/healthz", h.Health.Check)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	SetupReportRoutes(r, cfg, h.Reports)
}

func SetupReportRoutes(r *gin.Engine, cfg *config.Config, rc *controllers.ReportController) {
	api := r.Group("/api")
	// multipart framing and text fields on top of the file itself
	api.POST("/reports", middlewares.BodyLimit(cfg.UploadMaxBytes+(1<<20)), rc.CreateReport)
	api.GET("/reports", rc.GetReports)
	api.GET("/reports/view", rc.GetReportView)
	api.GET("/reports/export", rc.ExportReports)
}

// serveUpload serves files the upload store wrote and nothing else in dir.
func serveUpload(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if !uploads.IsGeneratedName(name) {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(filepath.Join(dir, name))
	}
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if cfg.AllowAllOrigins() {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}
	return cors.New(c)
}

package controllers

import (
	"net/http"

	"report-hub/grouping"
	"report-hub/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type boardCard struct {
	Heading      string
	Description  string
	Building     string
	Concern      string
	Status       string
	StatusClass  string
	Image        string
	Submitted    string
	Badge        string
	SimilarLabel string
	DrillURL     string
}

type boardPage struct {
	Building        string
	Concern         string
	ShowDuplicates  bool
	BuildingOptions []string
	ConcernOptions  []string
	Group           string
	BackURL         string
	ToggleURL       string
	ExportURL       string
	Placeholder     string
	Cards           []boardCard
}

// Board renders the report board at GET /.
func (rc *ReportController) Board(c *gin.Context) {
	state, err := stateFromQuery(c)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	view, err := rc.svc.View(c.Request.Context(), state)
	if err != nil {
		rc.log.Error("fetch reports error", zap.Error(err))
		captureError(c, err)
		c.String(http.StatusInternalServerError, "Error fetching reports")
		return
	}
	c.HTML(http.StatusOK, "board.tmpl", rc.boardPage(state, view))
}

func (rc *ReportController) boardPage(state grouping.State, view grouping.View) boardPage {
	page := boardPage{
		Building:        state.BuildingFilter,
		Concern:         state.ConcernFilter,
		ShowDuplicates:  state.ShowDuplicates,
		BuildingOptions: view.BuildingOptions,
		ConcernOptions:  view.ConcernOptions,
		BackURL:         stateURL("/", state.Back()),
		ToggleURL:       stateURL("/", state.ToggleDuplicates()),
		ExportURL:       stateURL("/api/reports/export", grouping.DefaultState().WithBuilding(state.BuildingFilter).WithConcern(state.ConcernFilter)),
		Placeholder:     rc.placeholder,
	}
	if view.SelectedGroup != nil {
		page.Group = view.SelectedGroup.String()
	}

	page.Cards = make([]boardCard, 0, len(view.Items))
	for _, it := range view.Items {
		card := cardFor(it.Report, rc.placeholder)
		card.Badge = it.Badge
		if it.SimilarCount > 0 {
			card.SimilarLabel = it.SimilarLabel
			card.DrillURL = stateURL("/", state.Select(it.GroupKey))
		}
		page.Cards = append(page.Cards, card)
	}
	return page
}

func cardFor(r models.Report, placeholder string) boardCard {
	return boardCard{
		Heading:     grouping.DisplayHeading(r),
		Description: grouping.DisplayDescription(r),
		Building:    r.Building,
		Concern:     r.Concern,
		Status:      grouping.DisplayStatus(r),
		StatusClass: grouping.StatusClass(r),
		Image:       grouping.ImageSource(r, placeholder),
		Submitted:   r.CreatedAt.Local().Format("2006-01-02"),
	}
}

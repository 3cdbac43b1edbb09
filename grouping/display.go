package grouping

import (
	"strings"

	"report-hub/models"
)

const (
	untitledHeading    = "Untitled Report"
	missingDescription = "No description provided."
)

func DisplayHeading(r models.Report) string {
	if r.Heading == "" {
		return untitledHeading
	}
	return r.Heading
}

func DisplayDescription(r models.Report) string {
	if r.Description == "" {
		return missingDescription
	}
	return r.Description
}

func DisplayStatus(r models.Report) string {
	if r.Status == "" {
		return models.StatusPending
	}
	return r.Status
}

// StatusClass turns a status into a css class, e.g. "In Progress" -> "in-progress".
func StatusClass(r models.Report) string {
	return strings.Join(strings.Fields(strings.ToLower(DisplayStatus(r))), "-")
}

// ImageSource returns the stored image reference, or placeholder when the
// report has none. A reference that fails to load is swapped for the
// placeholder by the page itself.
func ImageSource(r models.Report, placeholder string) string {
	if r.HasImage() {
		return *r.Image
	}
	return placeholder
}

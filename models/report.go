package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatusPending is the status every report starts with. Nothing moves a report out of it.
const StatusPending = "Pending"

type Report struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Heading     string             `json:"heading" bson:"heading"`
	Description string             `json:"description" bson:"description"`
	Concern     string             `json:"concern" bson:"concern"`   // e.g. Electrical, Plumbing
	Building    string             `json:"building" bson:"building"` // e.g. Library, Canteen
	Status      string             `json:"status" bson:"status"`
	Image       *string            `json:"image" bson:"image"` // nil when no file was attached
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// CreateReportInput carries the text fields of a submission. None of them are
// checked server-side; the browser form marks them required.
type CreateReportInput struct {
	Heading     string `form:"heading"`
	Description string `form:"description"`
	Concern     string `form:"concern"`
	Building    string `form:"building"`
}

// NewReport builds a pending report stamped with the given time.
func NewReport(in CreateReportInput, image *string, now time.Time) Report {
	return Report{
		Heading:     in.Heading,
		Description: in.Description,
		Concern:     in.Concern,
		Building:    in.Building,
		Status:      StatusPending,
		Image:       image,
		CreatedAt:   now,
	}
}

// HasImage reports whether an upload reference is attached.
func (r Report) HasImage() bool {
	return r.Image != nil && *r.Image != ""
}

package models

// CreateReportResponse is the body of a successful POST /api/reports.
type CreateReportResponse struct {
	Success bool   `json:"success"`
	Report  Report `json:"report"`
}

// ErrorResponse is returned by every endpoint on failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Fail(message string) ErrorResponse {
	return ErrorResponse{Success: false, Message: message}
}

package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
// Use these predefined success constants for consistent API responses across the application.
type APISuccess struct {
	Code   string
	Status int
}

var (
	SuccessIPUnblocked = APISuccess{
		Code:   CodeIPUnblocked,
		Status: http.StatusOK,
	}
	SuccessLinksPurged = APISuccess{
		Code:   CodeLinksPurged,
		Status: http.StatusOK,
	}
	SuccessNoOldLinks = APISuccess{
		Code:   CodeNoLinksFound,
		Status: http.StatusOK,
	}
)

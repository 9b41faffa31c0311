package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"

	// Shortener-specific codes
	CodeInvalidIP    = "INVALID_IP"
	CodeNoFile       = "NO_FILE_UPLOADED"
	CodeLinkNotFound = "LINK_NOT_FOUND"

	// Success codes
	CodeIPUnblocked  = "IP_UNBLOCKED"
	CodeLinksPurged  = "LINKS_PURGED"
	CodeNoLinksFound = "NO_OLD_LINKS"
)

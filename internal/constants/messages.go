package constants

// Error and status messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"

	// Blocking
	MsgIPBlocked = "Your IP has been blocked due to suspicious activity."
	MsgInvalidIP = "ipToUnblock must be a valid IP address"

	// Links
	MsgLinkNotFound = "URL not found and your IP has been blocked."

	// Retention
	MsgNoOldLinks  = "No old links found."
	MsgLinksPurged = "Old links successfully deleted."
)

package events

// ClickRecorded is emitted after a redirect click has been applied to the
// link's counter. Consumers use it for non-authoritative campaign rollups.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	Code       string `json:"code"`
	Campaign   string `json:"campaign,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

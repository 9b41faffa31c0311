package shortlinks

import "time"

// Link is a short-code record. Code is the primary key and never reused;
// Clicks only grows, and only via the redirect increment path.
type Link struct {
	Code      string
	URL       string
	Short     string
	Phone     string
	Campaign  string
	Clicks    int64
	CreatedAt time.Time
}

// BlockEntry marks an IP address as disallowed from further service.
type BlockEntry struct {
	IP      string
	Blocked bool
}

// CampaignStats is the aggregate click total for one campaign tag.
type CampaignStats struct {
	Campaign string `json:"campaign"`
	Clicks   int64  `json:"clicks"`
}

type CreateLinkInput struct {
	URL      string
	Phone    string
	Campaign string
}

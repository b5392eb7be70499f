package model

import "time"

// Match pairs one donation with one request. It references them by ID and
// constrains their status; it does not own them.
type Match struct {
	ID         string      `json:"id"`
	DonationID string      `json:"donationId"`
	RequestID  string      `json:"requestId"`
	Status     MatchStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// MatchDetail is a Match with short summaries of both sides for the admin
// matches view. A side is nil if its record no longer exists.
type MatchDetail struct {
	Match
	Donation *MatchedDonation `json:"donation"`
	Request  *MatchedRequest  `json:"request"`
}

type MatchedDonation struct {
	ItemName  string   `json:"itemName"`
	Category  Category `json:"category"`
	DonorName string   `json:"donorName"`
}

type MatchedRequest struct {
	ItemNeeded   string   `json:"itemNeeded"`
	Category     Category `json:"category"`
	ReceiverName string   `json:"receiverName"`
}

// ActivityType tags an entry in the public activity feed.
type ActivityType string

const (
	ActivityDonation ActivityType = "donation"
	ActivityRequest  ActivityType = "request"
)

// Activity is one entry of the public activity feed.
type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	ActorName string       `json:"userName"`
	ItemName  string       `json:"itemName"`
	Quantity  int          `json:"quantity"`
	Timestamp time.Time    `json:"timestamp"`
}

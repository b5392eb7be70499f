package model

import "time"

// Request is a receiver's stated need. Same lifecycle as Donation.
type Request struct {
	ID          string    `json:"id"`
	ReceiverID  string    `json:"receiverId"`
	ItemNeeded  string    `json:"itemNeeded"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Urgency     Urgency   `json:"urgency"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AdminRequest adds the receiver's contact details for the admin dashboard.
type AdminRequest struct {
	Request
	ReceiverName  string `json:"receiverName"`
	ReceiverEmail string `json:"receiverEmail"`
}

// PublicRequest is the anonymous-browsing projection of a Request.
type PublicRequest struct {
	ID           string    `json:"id"`
	ReceiverName string    `json:"receiverName"`
	ItemNeeded   string    `json:"itemNeeded"`
	Category     Category  `json:"category"`
	Description  string    `json:"description"`
	Quantity     int       `json:"quantity"`
	Urgency      Urgency   `json:"urgency"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Donation is an item a donor offers. It starts pending and moves through
// approval and matching (see internal/workflow for the allowed transitions).
//
// The `json:"..."` tags control the wire names. DonorID is included for the
// owner's own views and admin views; public views use PublicDonation instead,
// which drops it.
type Donation struct {
	ID          string    `json:"id"`
	DonorID     string    `json:"donorId"`
	ItemName    string    `json:"itemName"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AdminDonation is a donation as the admin dashboard sees it:
// the full record plus the donor's contact details.
//
// EMBEDDING:
// Embedding Donation (no field name) promotes all its fields, and
// encoding/json flattens embedded structs, so the JSON is the donation's
// fields with donorName/donorEmail added alongside.
type AdminDonation struct {
	Donation
	DonorName  string `json:"donorName"`
	DonorEmail string `json:"donorEmail"`
}

// PublicDonation is the anonymous-browsing projection. Owner IDs never leave
// the server; only the display name does.
type PublicDonation struct {
	ID          string    `json:"id"`
	DonorName   string    `json:"donorName"`
	ItemName    string    `json:"itemName"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

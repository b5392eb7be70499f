package model

// ENUMERATIONS AS TYPED STRINGS:
// Go has no enum keyword. The idiom is a named string type plus a block of
// constants. The named type stops a plain string from being passed where a
// Category is expected, and the string values are exactly what we store in
// the database and send over JSON, so no mapping layer is needed.
//
// Each type gets a Valid() method because values arriving from JSON or the
// database are not checked by the compiler: "jewellery" is a legal string
// but not a legal Category.

// Category classifies what is being donated or requested.
type Category string

const (
	CategoryClothes     Category = "clothes"
	CategoryBooks       Category = "books"
	CategoryFood        Category = "food"
	CategoryFurniture   Category = "furniture"
	CategoryElectronics Category = "electronics"
	CategoryToys        Category = "toys"
	CategoryMedical     Category = "medical"
	CategoryOther       Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryClothes, CategoryBooks, CategoryFood, CategoryFurniture,
	CategoryElectronics, CategoryToys, CategoryMedical, CategoryOther,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the approval/matching state shared by donations and requests.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusMatched  Status = "matched"
	StatusRejected Status = "rejected"
)

// Statuses lists every listing status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusMatched, StatusRejected}

// Valid reports whether s is a known listing status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusMatched, StatusRejected:
		return true
	}
	return false
}

// Urgency is the receiver's priority hint. It only affects ordering.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

func (u Urgency) Valid() bool {
	return u == UrgencyNormal || u == UrgencyUrgent
}

// MatchStatus is the lifecycle state of a Match.
type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchActive, MatchCompleted, MatchCancelled:
		return true
	}
	return false
}

// Role is what a user account is allowed to do.
type Role string

const (
	RoleDonor    Role = "donor"
	RoleReceiver Role = "receiver"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleReceiver, RoleAdmin:
		return true
	}
	return false
}

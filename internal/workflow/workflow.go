// Package workflow is the approval-and-matching state machine.
//
// It is pure: no storage, no logging, no context. The service layer asks it
// whether a transition is legal and then asks the repository to perform the
// transition with a compare-and-set, so the rule and the write cannot drift.
//
// Listing (donation or request) lifecycle:
//
//	pending  --approve-->        approved
//	pending  --reject-->         rejected   (terminal)
//	approved --match-->          matched
//	matched  --cancel(match)-->  approved
//	matched  --complete(match)-> matched    (terminal, status unchanged)
//
// Match lifecycle:
//
//	active --complete--> completed (terminal)
//	active --cancel-->   cancelled (terminal)
package workflow

import "github.com/sakif/givehub/internal/model"

// Decision is an admin's verdict on a pending listing.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == Approve || d == Reject
}

// Target is the status a pending listing moves to under d.
func (d Decision) Target() model.Status {
	if d == Approve {
		return model.StatusApproved
	}
	return model.StatusRejected
}

// PastTense is used in user-facing messages ("Donation approved successfully.").
func (d Decision) PastTense() string {
	if d == Approve {
		return "approved"
	}
	return "rejected"
}

var listingEdges = map[model.Status][]model.Status{
	model.StatusPending:  {model.StatusApproved, model.StatusRejected},
	model.StatusApproved: {model.StatusMatched},
	model.StatusMatched:  {model.StatusApproved},
}

// CanTransition reports whether a listing may move from one status to another.
func CanTransition(from, to model.Status) bool {
	for _, next := range listingEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanOwnerModify reports whether the owner may still edit or delete a listing.
// Once an admin has acted the listing is frozen to its owner.
func CanOwnerModify(s model.Status) bool {
	return s == model.StatusPending
}

// CanDecide reports whether an admin may still approve or reject a listing.
func CanDecide(s model.Status) bool {
	return s == model.StatusPending
}

// CanMatch reports whether a listing is available for a new match.
func CanMatch(s model.Status) bool {
	return s == model.StatusApproved
}

// CanTransitionMatch reports whether a match may move from one status to another.
func CanTransitionMatch(from, to model.MatchStatus) bool {
	return from == model.MatchActive && (to == model.MatchCompleted || to == model.MatchCancelled)
}

// StatusesWhere returns the listing statuses keep accepts, in lifecycle order.
func StatusesWhere(keep func(model.Status) bool) []model.Status {
	var out []model.Status
	for _, s := range model.Statuses {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// IsPublic reports whether a listing in status s may appear in the public
// listings and search results.
func IsPublic(s model.Status) bool {
	return s == model.StatusApproved
}

// InActivityFeed reports whether a listing in status s may appear in the
// public activity feed, which also shows already-matched listings.
func InActivityFeed(s model.Status) bool {
	return s == model.StatusApproved || s == model.StatusMatched
}

package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
	"github.com/sakif/givehub/internal/workflow"
)

// Search and feed limits.
const (
	DefaultMinQuantity   = 1
	DefaultMaxQuantity   = 100
	DefaultActivityLimit = 15
	MaxActivityLimit     = 50
)

// SearchType selects which listings Search looks at.
type SearchType string

const (
	SearchDonations SearchType = "donations"
	SearchRequests  SearchType = "requests"
	SearchBoth      SearchType = "both"
)

// All matches any category or urgency in a SearchFilter.
const All = "all"

// SearchFilter is the public search form. Zero values mean the defaults:
// any category, quantity 1..100, any urgency, both types.
type SearchFilter struct {
	ItemName    string
	Category    string
	MinQuantity int
	MaxQuantity int
	Urgency     string
	Type        SearchType
}

func (f SearchFilter) withDefaults() (SearchFilter, error) {
	f.ItemName = strings.TrimSpace(f.ItemName)
	if f.Category == "" {
		f.Category = All
	}
	if f.Urgency == "" {
		f.Urgency = All
	}
	if f.Type == "" {
		f.Type = SearchBoth
	}
	if f.MinQuantity <= 0 {
		f.MinQuantity = DefaultMinQuantity
	}
	if f.MaxQuantity <= 0 {
		f.MaxQuantity = DefaultMaxQuantity
	}

	switch f.Type {
	case SearchDonations, SearchRequests, SearchBoth:
	default:
		return f, apperror.ValidationFailed("type", "Type must be one of 'donations', 'requests' or 'both'.")
	}
	if f.Category != All && !model.Category(f.Category).Valid() {
		return f, apperror.ValidationFailed("category", "Invalid category specified.")
	}
	if f.Urgency != All && !model.Urgency(f.Urgency).Valid() {
		return f, apperror.ValidationFailed("urgency", "Urgency must be either 'normal' or 'urgent'.")
	}
	return f, nil
}

// SearchResult holds the two result lists. Each is non-nil.
type SearchResult struct {
	Donations []model.PublicDonation `json:"donations"`
	Requests  []model.PublicRequest  `json:"requests"`
}

// PublicService builds the read-only views anonymous visitors see. Only
// approved listings appear, except in the activity feed which also shows
// matched ones. Owner IDs never leave this service; only display names do.
type PublicService struct {
	store  repository.Store
	names  *NameResolver
	logger *slog.Logger
	now    func() time.Time
}

func NewPublicService(store repository.Store, names *NameResolver, logger *slog.Logger) *PublicService {
	return &PublicService{store: store, names: names, logger: logger, now: time.Now}
}

var (
	approvedOnly   = repository.ListFilter{Statuses: workflow.StatusesWhere(workflow.IsPublic)}
	activityStates = repository.ListFilter{Statuses: workflow.StatusesWhere(workflow.InActivityFeed)}
)

// ListDonations returns approved donations, newest first.
func (s *PublicService) ListDonations(ctx context.Context) ([]model.PublicDonation, error) {
	donations, err := s.store.ListDonations(ctx, approvedOnly)
	if err != nil {
		return nil, fmt.Errorf("listing public donations: %w", err)
	}
	out := s.publicDonations(ctx, donations)
	sortNewestFirst(out, func(d model.PublicDonation) time.Time { return d.CreatedAt })
	return out, nil
}

// ListRequests returns approved requests, urgent ones first, newest first
// within each urgency.
func (s *PublicService) ListRequests(ctx context.Context) ([]model.PublicRequest, error) {
	requests, err := s.store.ListRequests(ctx, approvedOnly)
	if err != nil {
		return nil, fmt.Errorf("listing public requests: %w", err)
	}
	out := s.publicRequests(ctx, requests)
	slices.SortStableFunc(out, func(a, b model.PublicRequest) int {
		au, bu := a.Urgency == model.UrgencyUrgent, b.Urgency == model.UrgencyUrgent
		if au != bu {
			if au {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Search filters approved listings. Without a name the results are newest
// first; with one they are ranked by relevance (see relevance).
func (s *PublicService) Search(ctx context.Context, filter SearchFilter) (*SearchResult, error) {
	f, err := filter.withDefaults()
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Donations: []model.PublicDonation{},
		Requests:  []model.PublicRequest{},
	}
	term := strings.ToLower(f.ItemName)
	now := s.now()

	if f.Type == SearchDonations || f.Type == SearchBoth {
		donations, err := s.store.ListDonations(ctx, approvedOnly)
		if err != nil {
			return nil, fmt.Errorf("searching donations: %w", err)
		}
		donations = slices.DeleteFunc(donations, func(d model.Donation) bool {
			return !f.matches(d.ItemName, d.Category, d.Quantity)
		})
		result.Donations = s.publicDonations(ctx, donations)

		if term != "" {
			slices.SortStableFunc(result.Donations, func(a, b model.PublicDonation) int {
				return cmp.Compare(
					relevance(b.ItemName, term, false, b.CreatedAt, now),
					relevance(a.ItemName, term, false, a.CreatedAt, now),
				)
			})
		} else {
			sortNewestFirst(result.Donations, func(d model.PublicDonation) time.Time { return d.CreatedAt })
		}
	}

	if f.Type == SearchRequests || f.Type == SearchBoth {
		requests, err := s.store.ListRequests(ctx, approvedOnly)
		if err != nil {
			return nil, fmt.Errorf("searching requests: %w", err)
		}
		requests = slices.DeleteFunc(requests, func(r model.Request) bool {
			if f.Urgency != All && string(r.Urgency) != f.Urgency {
				return true
			}
			return !f.matches(r.ItemNeeded, r.Category, r.Quantity)
		})
		result.Requests = s.publicRequests(ctx, requests)

		if term != "" {
			slices.SortStableFunc(result.Requests, func(a, b model.PublicRequest) int {
				return cmp.Compare(
					relevance(b.ItemNeeded, term, b.Urgency == model.UrgencyUrgent, b.CreatedAt, now),
					relevance(a.ItemNeeded, term, a.Urgency == model.UrgencyUrgent, a.CreatedAt, now),
				)
			})
		} else {
			sortNewestFirst(result.Requests, func(r model.PublicRequest) time.Time { return r.CreatedAt })
		}
	}

	s.logger.Debug("public search",
		slog.String("itemName", f.ItemName),
		slog.String("category", f.Category),
		slog.String("type", string(f.Type)),
		slog.Int("donations", len(result.Donations)),
		slog.Int("requests", len(result.Requests)),
	)
	return result, nil
}

func (f SearchFilter) matches(name string, category model.Category, quantity int) bool {
	if f.Category != All && string(category) != f.Category {
		return false
	}
	if f.ItemName != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(f.ItemName)) {
		return false
	}
	return quantity >= f.MinQuantity && quantity <= f.MaxQuantity
}

// relevance scores a listing name against a lower-cased search term:
//
//	100 exact name match (case-insensitive)
//	 50 name contains the term (an exact match gets this too)
//	 30 request marked urgent
//	 up to 20 for recency, losing one point per day of age
func relevance(name, term string, urgent bool, created, now time.Time) float64 {
	name = strings.ToLower(name)

	var score float64
	if name == term {
		score += 100
	}
	if strings.Contains(name, term) {
		score += 50
	}
	if urgent {
		score += 30
	}
	ageDays := now.Sub(created).Hours() / 24
	score += math.Max(0, 20-ageDays)
	return score
}

// ActivityFeed merges approved and matched listings into one newest-first
// feed. limit <= 0 means the default; anything above the maximum is capped.
func (s *PublicService) ActivityFeed(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	limit = min(limit, MaxActivityLimit)

	donations, err := s.store.ListDonations(ctx, activityStates)
	if err != nil {
		return nil, fmt.Errorf("listing donation activity: %w", err)
	}
	requests, err := s.store.ListRequests(ctx, activityStates)
	if err != nil {
		return nil, fmt.Errorf("listing request activity: %w", err)
	}

	donors := s.names.cache(AnonymousDonor)
	receivers := s.names.cache(CommunityMember)

	feed := make([]model.Activity, 0, len(donations)+len(requests))
	for _, d := range donations {
		feed = append(feed, model.Activity{
			ID:        "donation-" + d.ID,
			Type:      model.ActivityDonation,
			ActorName: donors.get(ctx, d.DonorID),
			ItemName:  d.ItemName,
			Quantity:  d.Quantity,
			Timestamp: d.CreatedAt,
		})
	}
	for _, r := range requests {
		feed = append(feed, model.Activity{
			ID:        "request-" + r.ID,
			Type:      model.ActivityRequest,
			ActorName: receivers.get(ctx, r.ReceiverID),
			ItemName:  r.ItemNeeded,
			Quantity:  r.Quantity,
			Timestamp: r.CreatedAt,
		})
	}

	sortNewestFirst(feed, func(a model.Activity) time.Time { return a.Timestamp })
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

func (s *PublicService) publicDonations(ctx context.Context, donations []model.Donation) []model.PublicDonation {
	donors := s.names.cache(AnonymousDonor)
	out := make([]model.PublicDonation, 0, len(donations))
	for _, d := range donations {
		out = append(out, model.PublicDonation{
			ID:          d.ID,
			DonorName:   donors.get(ctx, d.DonorID),
			ItemName:    d.ItemName,
			Category:    d.Category,
			Description: d.Description,
			Quantity:    d.Quantity,
			PhotoURL:    d.PhotoURL,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
		})
	}
	return out
}

func (s *PublicService) publicRequests(ctx context.Context, requests []model.Request) []model.PublicRequest {
	receivers := s.names.cache(AnonymousName)
	out := make([]model.PublicRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, model.PublicRequest{
			ID:           r.ID,
			ReceiverName: receivers.get(ctx, r.ReceiverID),
			ItemNeeded:   r.ItemNeeded,
			Category:     r.Category,
			Description:  r.Description,
			Quantity:     r.Quantity,
			Urgency:      r.Urgency,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		})
	}
	return out
}

// sortNewestFirst is a stable sort, so equal timestamps keep insertion order.
func sortNewestFirst[T any](items []T, at func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return at(b).Compare(at(a))
	})
}

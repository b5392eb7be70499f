// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces the workflow, orchestrates
//	Repository (Data layer)  → reads/writes storage
//
// Every mutating call takes a model.Actor as an explicit argument. The
// service never looks at HTTP state to find out who is calling; whoever
// builds the Actor (the auth middleware, the seeder, a test) vouches for it.
//
// Services depend on repository interfaces only. main wires in the SQLite
// store; tests wire in the memory store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
	"github.com/sakif/givehub/internal/workflow"
)

// Fallback display names.
const (
	UnknownName       = "Unknown"
	AnonymousName     = "Anonymous"
	AnonymousDonor    = "Anonymous Donor"
	CommunityMember   = "Community Member"
	insufficientPerms = "Insufficient permissions."
)

// Recorder receives workflow events, for metrics. Calls happen only after
// the change is committed.
type Recorder interface {
	RecordTransition(entity, from, to string)
	RecordMatch(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string, string, string) {}
func (nopRecorder) RecordMatch(string)                      {}

func orNop(rec Recorder) Recorder {
	if rec == nil {
		return nopRecorder{}
	}
	return rec
}

// NameResolver turns user IDs into display names and contact details.
// A user that cannot be found gets the caller-supplied fallback; a storage
// failure is logged and also gets the fallback, so a broken lookup never
// breaks a listing.
type NameResolver struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewNameResolver(users repository.UserRepository, logger *slog.Logger) *NameResolver {
	return &NameResolver{users: users, logger: logger}
}

func (n *NameResolver) lookup(ctx context.Context, id string) *model.User {
	if id == "" {
		return nil
	}
	u, err := n.users.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			n.logger.Error("resolving user name",
				slog.String("userID", id),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return u
}

// Name returns the user's display name, or fallback.
func (n *NameResolver) Name(ctx context.Context, id, fallback string) string {
	if u := n.lookup(ctx, id); u != nil && u.Name != "" {
		return u.Name
	}
	return fallback
}

// Contact returns name and email, each defaulting to "Unknown".
func (n *NameResolver) Contact(ctx context.Context, id string) (name, email string) {
	u := n.lookup(ctx, id)
	if u == nil {
		return UnknownName, UnknownName
	}
	name, email = u.Name, u.Email
	if name == "" {
		name = UnknownName
	}
	if email == "" {
		email = UnknownName
	}
	return name, email
}

// nameCache memoises lookups for the length of one listing call.
type nameCache struct {
	names    *NameResolver
	fallback string
	seen     map[string]string
}

func (n *NameResolver) cache(fallback string) *nameCache {
	return &nameCache{names: n, fallback: fallback, seen: map[string]string{}}
}

func (c *nameCache) get(ctx context.Context, id string) string {
	if name, ok := c.seen[id]; ok {
		return name
	}
	name := c.names.Name(ctx, id, c.fallback)
	c.seen[id] = name
	return name
}

func requireAdmin(actor model.Actor) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden(insufficientPerms)
	}
	return nil
}

// legalEdge is checked before every listing compare-and-set, so a write
// never takes an edge the state machine does not list. Failing it is a bug,
// reported as an internal error.
func legalEdge(entity string, from, to model.Status) error {
	if !workflow.CanTransition(from, to) {
		return fmt.Errorf("service: %s cannot move from %s to %s", entity, from, to)
	}
	return nil
}

func legalMatchEdge(from, to model.MatchStatus) error {
	if !workflow.CanTransitionMatch(from, to) {
		return fmt.Errorf("service: match cannot move from %s to %s", from, to)
	}
	return nil
}

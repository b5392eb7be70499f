// Package memory is an in-process repository.Store used by tests and by
// anything that wants the full workflow without a database file.
//
// One lock guards everything. Every write and every Atomic block holds it
// for its whole duration, so readers never see half an Atomic block and two
// concurrent compare-and-set transitions on the same record serialise.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
)

// state is everything the store holds. Slices keep insertion order.
type state struct {
	donations []model.Donation
	requests  []model.Request
	matches   []model.Match
	users     []model.User
}

func (s *state) clone() *state {
	return &state{
		donations: slices.Clone(s.donations),
		requests:  slices.Clone(s.requests),
		matches:   slices.Clone(s.matches),
		users:     slices.Clone(s.users),
	}
}

// Store implements repository.Store in memory.
type Store struct {
	mu   *sync.RWMutex
	data *state
	inTx bool // true on the view handed to an Atomic callback; the lock is already held
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{mu: &sync.RWMutex{}, data: &state{}}
}

func (s *Store) read(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.data)
}

func (s *Store) write(fn func(st *state) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

// Atomic holds the write lock for the whole of fn. On error the state taken
// before fn ran is put back.
func (s *Store) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	if err := fn(&Store{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func stamp(created *time.Time, updated *time.Time) {
	if created.IsZero() {
		*created = time.Now().UTC()
	}
	*updated = *created
}

func statusError(resource, id string, current, from string) error {
	return apperror.InvalidState(fmt.Sprintf("%s %s is %s, not %s", resource, id, current, from))
}

// =========================================================================
// DONATIONS
// =========================================================================

func (s *Store) CreateDonation(_ context.Context, d *model.Donation) error {
	return s.write(func(st *state) error {
		d.ID = xid.New().String()
		stamp(&d.CreatedAt, &d.UpdatedAt)
		st.donations = append(st.donations, *d)
		return nil
	})
}

func (s *Store) GetDonation(_ context.Context, id string) (*model.Donation, error) {
	var out *model.Donation
	err := s.read(func(st *state) error {
		i := slices.IndexFunc(st.donations, func(d model.Donation) bool { return d.ID == id })
		if i < 0 {
			return apperror.NotFound("donation", id)
		}
		d := st.donations[i]
		out = &d
		return nil
	})
	return out, err
}

func (s *Store) ListDonations(_ context.Context, filter repository.ListFilter) ([]model.Donation, error) {
	out := []model.Donation{}
	err := s.read(func(st *state) error {
		for _, d := range st.donations {
			if filter.Includes(d.Status) {
				out = append(out, d)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListDonationsByDonor(_ context.Context, donorID string) ([]model.Donation, error) {
	out := []model.Donation{}
	err := s.read(func(st *state) error {
		for _, d := range st.donations {
			if d.DonorID == donorID {
				out = append(out, d)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) UpdateDonation(_ context.Context, d *model.Donation) error {
	return s.write(func(st *state) error {
		i := slices.IndexFunc(st.donations, func(x model.Donation) bool { return x.ID == d.ID })
		if i < 0 {
			return apperror.NotFound("donation", d.ID)
		}
		d.UpdatedAt = time.Now().UTC()
		cur := &st.donations[i]
		cur.ItemName = d.ItemName
		cur.Category = d.Category
		cur.Description = d.Description
		cur.Quantity = d.Quantity
		cur.PhotoURL = d.PhotoURL
		cur.UpdatedAt = d.UpdatedAt
		return nil
	})
}

func (s *Store) DeleteDonation(_ context.Context, id string) error {
	return s.write(func(st *state) error {
		i := slices.IndexFunc(st.donations, func(d model.Donation) bool { return d.ID == id })
		if i < 0 {
			return apperror.NotFound("donation", id)
		}
		st.donations = slices.Delete(st.donations, i, i+1)
		return nil
	})
}

func (s *Store) TransitionDonation(_ context.Context, id string, from, to model.Status) (*model.Donation, error) {
	var out *model.Donation
	err := s.write(func(st *state) error {
		i := slices.IndexFunc(st.donations, func(d model.Donation) bool { return d.ID == id })
		if i < 0 {
			return apperror.NotFound("donation", id)
		}
		cur := &st.donations[i]
		if cur.Status != from {
			return statusError("donation", id, string(cur.Status), string(from))
		}
		cur.Status = to
		cur.UpdatedAt = time.Now().UTC()
		d := *cur
		out = &d
		return nil
	})
	return out, err
}

// =========================================================================
// REQUESTS
// =========================================================================

func (s *Store) CreateRequest(_ context.Context, r *model.Request) error {
	return s.write(func(st *state) error {
		r.ID = xid.New().String()
		stamp(&r.CreatedAt, &r.UpdatedAt)
		st.requests = append(st.requests, *r)
		return nil
	})
}

func (s *Store) GetRequest(_ context.Context, id string) (*model.Request, error) {
	var out *model.Request
	err := s.read(func(st *state) error {
		i := slices.IndexFunc(st.requests, func(r model.Request) bool { return r.ID == id })
		if i < 0 {
			return apperror.NotFound("request", id)
		}
		r := st.requests[i]
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) ListRequests(_ context.Context, filter repository.ListFilter) ([]model.Request, error) {
	out := []model.Request{}
	err := s.read(func(st *state) error {
		for _, r := range st.requests {
			if filter.Includes(r.Status) {
				out = append(out, r)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListRequestsByReceiver(_ context.Context, receiverID string) ([]model.Request, error) {
	out := []model.Request{}
	err := s.read(func(st *state) error {
		for _, r := range st.requests {
			if r.ReceiverID == receiverID {
				out = append(out, r)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) UpdateRequest(_ context.Context, r *model.Request) error {
	return s.write(func(st *state) error {
		i := slices.IndexFunc(st.requests, func(x model.Request) bool { return x.ID == r.ID })
		if i < 0 {
			return apperror.NotFound("request", r.ID)
		}
		r.UpdatedAt = time.Now().UTC()
		cur := &st.requests[i]
		cur.ItemNeeded = r.ItemNeeded
		cur.Category = r.Category
		cur.Description = r.Description
		cur.Quantity = r.Quantity
		cur.Urgency = r.Urgency
		cur.UpdatedAt = r.UpdatedAt
		return nil
	})
}

func (s *Store) DeleteRequest(_ context.Context, id string) error {
	return s.write(func(st *state) error {
		i := slices.IndexFunc(st.requests, func(r model.Request) bool { return r.ID == id })
		if i < 0 {
			return apperror.NotFound("request", id)
		}
		st.requests = slices.Delete(st.requests, i, i+1)
		return nil
	})
}

func (s *Store) TransitionRequest(_ context.Context, id string, from, to model.Status) (*model.Request, error) {
	var out *model.Request
	err := s.write(func(st *state) error {
		i := slices.IndexFunc(st.requests, func(r model.Request) bool { return r.ID == id })
		if i < 0 {
			return apperror.NotFound("request", id)
		}
		cur := &st.requests[i]
		if cur.Status != from {
			return statusError("request", id, string(cur.Status), string(from))
		}
		cur.Status = to
		cur.UpdatedAt = time.Now().UTC()
		r := *cur
		out = &r
		return nil
	})
	return out, err
}

// =========================================================================
// MATCHES
// =========================================================================

// CreateMatch enforces the same one-active-match-per-side rule the SQLite
// partial unique indexes do.
func (s *Store) CreateMatch(_ context.Context, m *model.Match) error {
	return s.write(func(st *state) error {
		if m.Status == model.MatchActive {
			for _, x := range st.matches {
				if x.Status == model.MatchActive && (x.DonationID == m.DonationID || x.RequestID == m.RequestID) {
					return apperror.InvalidState("donation or request already has an active match")
				}
			}
		}
		m.ID = xid.New().String()
		now := time.Now().UTC()
		m.CreatedAt = now
		m.UpdatedAt = now
		st.matches = append(st.matches, *m)
		return nil
	})
}

func (s *Store) GetMatch(_ context.Context, id string) (*model.Match, error) {
	var out *model.Match
	err := s.read(func(st *state) error {
		i := slices.IndexFunc(st.matches, func(m model.Match) bool { return m.ID == id })
		if i < 0 {
			return apperror.NotFound("match", id)
		}
		m := st.matches[i]
		out = &m
		return nil
	})
	return out, err
}

func (s *Store) ListMatches(_ context.Context) ([]model.Match, error) {
	var out []model.Match
	err := s.read(func(st *state) error {
		out = slices.Clone(st.matches)
		if out == nil {
			out = []model.Match{}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListActiveMatches(_ context.Context, donationID, requestID string) ([]model.Match, error) {
	out := []model.Match{}
	err := s.read(func(st *state) error {
		for _, m := range st.matches {
			if m.Status == model.MatchActive && (m.DonationID == donationID || m.RequestID == requestID) {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) TransitionMatch(_ context.Context, id string, from, to model.MatchStatus) (*model.Match, error) {
	var out *model.Match
	err := s.write(func(st *state) error {
		i := slices.IndexFunc(st.matches, func(m model.Match) bool { return m.ID == id })
		if i < 0 {
			return apperror.NotFound("match", id)
		}
		cur := &st.matches[i]
		if cur.Status != from {
			return statusError("match", id, string(cur.Status), string(from))
		}
		cur.Status = to
		cur.UpdatedAt = time.Now().UTC()
		m := *cur
		out = &m
		return nil
	})
	return out, err
}

// =========================================================================
// USERS
// =========================================================================

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	return s.write(func(st *state) error {
		email := normalizeEmail(u.Email)
		for _, x := range st.users {
			if x.Email == email {
				return apperror.ConflictMsg("User with this email already exists.")
			}
		}
		now := time.Now().UTC()
		u.ID = xid.New().String()
		u.Email = email
		u.CreatedAt = now
		u.UpdatedAt = now
		st.users = append(st.users, *u)
		return nil
	})
}

func (s *Store) findUser(match func(model.User) bool, key string) (*model.User, error) {
	var out *model.User
	err := s.read(func(st *state) error {
		i := slices.IndexFunc(st.users, match)
		if i < 0 {
			return apperror.NotFound("user", key)
		}
		u := st.users[i]
		out = &u
		return nil
	})
	return out, err
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return s.findUser(func(u model.User) bool { return u.ID == id }, id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	return s.findUser(func(u model.User) bool { return u.Email == email }, email)
}

func (s *Store) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	return s.findUser(func(u model.User) bool {
		return githubID != 0 && u.GitHubID == githubID
	}, fmt.Sprintf("github:%d", githubID))
}

func (s *Store) LinkGitHub(_ context.Context, userID string, githubID int64) error {
	return s.write(func(st *state) error {
		i := slices.IndexFunc(st.users, func(u model.User) bool { return u.ID == userID })
		if i < 0 {
			return apperror.NotFound("user", userID)
		}
		for _, u := range st.users {
			if githubID != 0 && u.GitHubID == githubID && u.ID != userID {
				return apperror.ConflictMsg("This GitHub account is already linked to another user.")
			}
		}
		st.users[i].GitHubID = githubID
		st.users[i].UpdatedAt = time.Now().UTC()
		return nil
	})
}

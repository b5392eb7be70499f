// Package seed creates the default accounts and a small set of demo
// listings so a fresh database has something to show.
//
// Everything goes through the services, so seeded data obeys the same rules
// as user-created data. Running it twice is safe: accounts that already
// exist are reused, and demo listings are only added if the demo donor and
// receiver do not own any yet.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
	"github.com/sakif/givehub/internal/service"
	"github.com/sakif/givehub/internal/workflow"
)

// Account is a default login.
type Account struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// DefaultAccounts are the logins printed on the sign-in page of the demo.
var DefaultAccounts = []Account{
	{Name: "Admin User", Email: "admin@example.com", Password: "admin123", Role: model.RoleAdmin},
	{Name: "Donor User", Email: "donor@example.com", Password: "donor123", Role: model.RoleDonor},
	{Name: "Receiver User", Email: "receiver@example.com", Password: "receiver123", Role: model.RoleReceiver},
}

// Listed oldest first, so the public lists show them newest first in the
// order given here reversed.
var demoDonations = []service.DonationInput{
	{ItemName: "Educational Books", Category: model.CategoryBooks, Description: "Textbooks and reference books for high school students", Quantity: 50},
	{ItemName: "Laptops", Category: model.CategoryElectronics, Description: "Refurbished laptops for students and educational purposes", Quantity: 5},
	{ItemName: "Medical Supplies", Category: model.CategoryMedical, Description: "First aid kits, bandages, and basic medicines", Quantity: 15},
	{ItemName: "Rice and Lentils", Category: model.CategoryFood, Description: "50kg of rice and 20kg of lentils for families in need", Quantity: 70},
	{ItemName: "Winter Clothes", Category: model.CategoryClothes, Description: "Warm winter jackets, sweaters, and pants for children ages 5-12", Quantity: 20},
}

var demoRequests = []service.RequestInput{
	{ItemNeeded: "Children Toys", Category: model.CategoryToys, Description: "Educational toys for 2 children ages 3 and 5", Quantity: 8, Urgency: model.UrgencyNormal},
	{ItemNeeded: "Blood Pressure Monitor", Category: model.CategoryMedical, Description: "Digital blood pressure monitor for community health checks", Quantity: 2, Urgency: model.UrgencyNormal},
	{ItemNeeded: "Blankets", Category: model.CategoryClothes, Description: "Warm blankets for elderly family members during winter", Quantity: 5, Urgency: model.UrgencyNormal},
	{ItemNeeded: "Baby Formula", Category: model.CategoryFood, Description: "Infant formula for 6-month-old baby - lactose-free if possible", Quantity: 10, Urgency: model.UrgencyUrgent},
	{ItemNeeded: "School Supplies", Category: model.CategoryBooks, Description: "Notebooks, pens, pencils for 3 children starting school", Quantity: 30, Urgency: model.UrgencyUrgent},
}

// Result counts what a run actually created.
type Result struct {
	Accounts  int
	Donations int
	Requests  int
}

type Seeder struct {
	auth      *service.AuthService
	donations *service.DonationService
	requests  *service.RequestService
	users     repository.UserRepository
	logger    *slog.Logger
}

func New(
	auth *service.AuthService,
	donations *service.DonationService,
	requests *service.RequestService,
	users repository.UserRepository,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{auth: auth, donations: donations, requests: requests, users: users, logger: logger}
}

// Run creates the default accounts, then (if demo is true) the demo
// listings, approved by the default admin.
func (s *Seeder) Run(ctx context.Context, demo bool) (Result, error) {
	var res Result

	actors := make(map[model.Role]model.Actor, len(DefaultAccounts))
	for _, acc := range DefaultAccounts {
		actor, created, err := s.ensureAccount(ctx, acc)
		if err != nil {
			return res, err
		}
		if created {
			res.Accounts++
		}
		actors[acc.Role] = actor
	}

	if !demo {
		return res, nil
	}

	admin, donor, receiver := actors[model.RoleAdmin], actors[model.RoleDonor], actors[model.RoleReceiver]

	existing, err := s.donations.ListMine(ctx, donor)
	if err != nil {
		return res, fmt.Errorf("seed: listing demo donations: %w", err)
	}
	if len(existing) == 0 {
		for _, in := range demoDonations {
			d, err := s.donations.Create(ctx, donor, in)
			if err != nil {
				return res, fmt.Errorf("seed: donation %q: %w", in.ItemName, err)
			}
			if _, err := s.donations.Decide(ctx, admin, d.ID, workflow.Approve); err != nil {
				return res, fmt.Errorf("seed: approving donation %q: %w", in.ItemName, err)
			}
			res.Donations++
		}
	}

	existingReqs, err := s.requests.ListMine(ctx, receiver)
	if err != nil {
		return res, fmt.Errorf("seed: listing demo requests: %w", err)
	}
	if len(existingReqs) == 0 {
		for _, in := range demoRequests {
			r, err := s.requests.Create(ctx, receiver, in)
			if err != nil {
				return res, fmt.Errorf("seed: request %q: %w", in.ItemNeeded, err)
			}
			if _, err := s.requests.Decide(ctx, admin, r.ID, workflow.Approve); err != nil {
				return res, fmt.Errorf("seed: approving request %q: %w", in.ItemNeeded, err)
			}
			res.Requests++
		}
	}

	s.logger.Info("seed complete",
		slog.Int("accounts", res.Accounts),
		slog.Int("donations", res.Donations),
		slog.Int("requests", res.Requests),
	)
	return res, nil
}

// ensureAccount returns the account for acc.Email, creating it if needed.
// An existing account keeps its password; only its role must agree.
func (s *Seeder) ensureAccount(ctx context.Context, acc Account) (model.Actor, bool, error) {
	user, err := s.auth.CreateAccount(ctx, service.RegisterInput{
		Name:     acc.Name,
		Email:    acc.Email,
		Password: acc.Password,
		Role:     acc.Role,
	})
	if err == nil {
		return model.Actor{ID: user.ID, Role: user.Role}, true, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return model.Actor{}, false, fmt.Errorf("seed: creating %s: %w", acc.Email, err)
	}

	user, err = s.users.GetUserByEmail(ctx, acc.Email)
	if err != nil {
		return model.Actor{}, false, fmt.Errorf("seed: looking up %s: %w", acc.Email, err)
	}
	if user.Role != acc.Role {
		return model.Actor{}, false, fmt.Errorf("seed: %s exists with role %s, want %s", acc.Email, user.Role, acc.Role)
	}
	s.logger.Debug("seed account exists", slog.String("email", acc.Email))
	return model.Actor{ID: user.ID, Role: user.Role}, false, nil
}

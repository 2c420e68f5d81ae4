// Package session owns the current account: login, logout and the
// role gate that decides which page a view renders.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"campusrecords/internal/apperr"
	"campusrecords/internal/bus"
	"campusrecords/internal/model"
	"campusrecords/internal/store"
)

// UserLookup finds registered users by email.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Service manages the account record and broadcasts every change.
type Service struct {
	store *store.Store
	bus   *bus.Bus
	users UserLookup
	mu    sync.Mutex
	log   *slog.Logger
}

// NewService creates a session service. users may be nil.
func NewService(st *store.Store, b *bus.Bus, users UserLookup) *Service {
	return &Service{
		store: st,
		bus:   b,
		users: users,
		log:   slog.Default().With("component", "session"),
	}
}

// Current returns the signed-in account, or nil.
func (s *Service) Current(ctx context.Context) (*model.Account, error) {
	var acc model.Account
	found, err := s.store.GetJSON(ctx, store.KeyAccount, &acc)
	if err != nil || !found {
		return nil, err
	}
	return &acc, nil
}

// LoginWallet signs in with a wallet address.
func (s *Service) LoginWallet(ctx context.Context, address, publicKey, role string) (*model.Account, error) {
	if err := checkRole(role); err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperr.Invalid("address", "Failed to obtain wallet address.")
	}
	acc := &model.Account{
		Method:    model.MethodWallet,
		Address:   address,
		PublicKey: publicKey,
		Role:      role,
		CanUpload: role == model.RoleAdmin,
	}
	if err := s.save(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// LoginEmail signs in with an email address. When the email belongs to a
// registered user, the account carries that user's id and name.
func (s *Service) LoginEmail(ctx context.Context, email, role string) (*model.Account, error) {
	if err := checkRole(role); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Invalid("email", "Enter an email.")
	}
	acc := &model.Account{
		Method:    model.MethodEmail,
		Email:     email,
		Role:      role,
		CanUpload: role == model.RoleAdmin,
	}
	if s.users != nil {
		u, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if u != nil {
			acc.UserID = u.ID
			acc.Name = u.Name
		}
	}
	if err := s.save(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Logout clears the account and broadcasts a nil account.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Remove(ctx, store.KeyAccount); err != nil {
		return err
	}
	s.log.Info("logged out")
	s.bus.Publish(bus.TopicAccount, nil)
	return nil
}

// EnableUpload grants upload rights to the stored account. It is a
// development helper; there is no authority check.
func (s *Service) EnableUpload(ctx context.Context) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, apperr.Invalid("account", "No account in storage to enable.")
	}
	acc.CanUpload = true
	if err := s.store.SetJSON(ctx, store.KeyAccount, acc); err != nil {
		return nil, err
	}
	s.bus.Publish(bus.TopicAccount, *acc)
	return acc, nil
}

// Navigate asks mounted views to switch to the wallet or back to the dashboard.
func (s *Service) Navigate(to string) error {
	if to != model.NavWallet && to != model.NavDashboard {
		return apperr.Invalid("to", "Unknown destination.")
	}
	s.bus.Publish(bus.TopicNavigate, model.Navigate{To: to})
	return nil
}

func (s *Service) save(ctx context.Context, acc *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetJSON(ctx, store.KeyAccount, acc); err != nil {
		return err
	}
	s.log.Info("logged in", "method", acc.Method, "role", acc.Role)
	s.bus.Publish(bus.TopicAccount, *acc)
	return nil
}

func checkRole(role string) error {
	if role != model.RoleStudent && role != model.RoleAdmin {
		return apperr.Invalid("role", "Please select your role (Student or Admin) first.")
	}
	return nil
}

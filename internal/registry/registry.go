// Package registry keeps the list of registered portal users.
package registry

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusrecords/internal/apperr"
	"campusrecords/internal/model"
	"campusrecords/internal/store"
)

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Phone      string `json:"phone"`
	RollNumber string `json:"rollNumber"`
	Department string `json:"department"`
}

// Service registers users. Emails are unique.
type Service struct {
	store *store.Store
	mu    sync.Mutex
	now   func() time.Time
	log   *slog.Logger
}

// NewService creates a registry on st.
func NewService(st *store.Store) *Service {
	return &Service{
		store: st,
		now:   time.Now,
		log:   slog.Default().With("component", "registry"),
	}
}

// Register validates req and appends a new user. Admins may upload.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return model.User{}, apperr.Invalid("", "Name, email, password, and role are required.")
	}
	if req.Role != model.RoleStudent && req.Role != model.RoleAdmin {
		return model.User{}, apperr.Invalid("role", "Role must be student or admin.")
	}
	if req.Role == model.RoleStudent && strings.TrimSpace(req.RollNumber) == "" {
		return model.User{}, apperr.Invalid("rollNumber", "Roll number is required for students.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.List(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.Email == req.Email {
			return model.User{}, apperr.Invalid("email", "Email already registered. Please sign in.")
		}
	}

	user := model.User{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Phone:      req.Phone,
		RollNumber: req.RollNumber,
		Department: req.Department,
		CanUpload:  req.Role == model.RoleAdmin,
		CreatedAt:  model.Millis(s.now()),
	}
	if err := s.store.SetJSON(ctx, store.KeyUsers, append(users, user)); err != nil {
		return model.User{}, err
	}
	s.log.Info("user registered", "id", user.ID, "role", user.Role)
	return user, nil
}

// List returns all users in registration order.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if _, err := s.store.GetJSON(ctx, store.KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindByEmail returns the user registered with email, or nil. Surrounding
// spaces are ignored.
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, nil
}

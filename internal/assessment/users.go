package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

const bcryptCost = 12

type NewUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Name     string   `json:"name" validate:"max=128"`
	Role     string   `json:"role" validate:"required,oneof=student teacher coordinator admin"`
	Approved bool     `json:"approved"`
	Subjects []string `json:"subjects" validate:"dive,oneof=physics chemistry maths biology"`
}

var userValidator = validator.New()

// CreateUser adds an account. Only admins create accounts.
func (s *Service) CreateUser(ctx context.Context, a Actor, req NewUserRequest) (User, error) {
	if a.Role != exam.RoleAdmin {
		return User{}, exam.Deniedf("Only admins can create users")
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if err := userValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return User{}, exam.Validationf("Invalid %s", strings.ToLower(verrs[0].Field()))
		}
		return User{}, exam.Validationf("Invalid user: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	// only teachers wait for approval
	approved := req.Approved || exam.Role(req.Role) != exam.RoleTeacher
	u := User{
		ID:           s.newID(),
		Username:     req.Username,
		Name:         strings.TrimSpace(req.Name),
		Role:         exam.Role(req.Role),
		PasswordHash: string(hash),
		Approved:     approved,
		CreatedAt:    s.now(),
	}
	for _, subj := range req.Subjects {
		u.Subjects = append(u.Subjects, exam.Subject(subj))
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if exam.KindOf(err) == exam.KindConflict {
			return User{}, exam.Conflictf("Username '%s' is taken", u.Username)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)), zap.String("actor", a.ID))
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, a Actor, role exam.Role) ([]User, error) {
	if a.Role != exam.RoleAdmin {
		return nil, exam.Deniedf("Only admins can list users")
	}
	return s.store.ListUsers(ctx, role)
}

// SetUserApproved approves or suspends an account. Teachers cannot compose
// until approved.
func (s *Service) SetUserApproved(ctx context.Context, a Actor, id string, approved bool) (User, error) {
	if a.Role != exam.RoleAdmin {
		return User{}, exam.Deniedf("Only admins can approve users")
	}
	if err := s.store.SetUserApproved(ctx, id, approved); err != nil {
		return User{}, err
	}
	s.log.Info("user approval changed", zap.String("user_id", id), zap.Bool("approved", approved), zap.String("actor", a.ID))
	return s.store.GetUser(ctx, id)
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords fail the same way.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if exam.KindOf(err) == exam.KindNotFound {
			return User{}, exam.Deniedf("Invalid credentials")
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, exam.Deniedf("Invalid credentials")
	}
	return u, nil
}

// EnsureAdmin creates the configured admin account if it does not exist.
// passHash is a bcrypt hash.
func (s *Service) EnsureAdmin(ctx context.Context, username, passHash string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if exam.KindOf(err) != exam.KindNotFound {
		return err
	}
	u := User{
		ID:           s.newID(),
		Username:     username,
		Name:         "Administrator",
		Role:         exam.RoleAdmin,
		PasswordHash: passHash,
		Approved:     true,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil && exam.KindOf(err) != exam.KindConflict {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin account created", zap.String("username", username))
	return nil
}

// ActorOf is the service identity of an account.
func ActorOf(u User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Approved: u.Approved, Subjects: u.Subjects}
}

// GetUser loads an account by id. It backs per-request identity checks and
// is not an actor-facing operation.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.store.GetUser(ctx, id)
}

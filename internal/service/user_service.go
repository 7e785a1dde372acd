package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 6

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(u entity.User) (token string, expiresAt time.Time, err error)
}

// UserInput carries account fields. Empty fields are left unchanged on update.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      entity.User `json:"user"`
}

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", entity.ErrUnauthenticated)

// UserService handles registration, login and account administration.
type UserService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	now    entity.Clock
	newID  func() string
}

func NewUserService(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer) *UserService {
	return &UserService{users: users, hasher: hasher, tokens: tokens, now: time.Now, newID: uuid.NewString}
}

// Register creates a CUSTOMER account. Any requested role is ignored.
func (s *UserService) Register(ctx context.Context, in UserInput) (entity.User, error) {
	in.Role = string(entity.RoleCustomer)
	return s.create(ctx, in)
}

// Login verifies credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		verr := &entity.ValidationError{}
		if strings.TrimSpace(email) == "" {
			verr.Add("email", "is required")
		}
		if password == "" {
			verr.Add("password", "is required")
		}
		return Session{}, verr
	}

	u, err := s.users.FindUserByEmail(ctx, entity.NormalizeEmail(email))
	if errors.Is(err, entity.ErrNotFound) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, entity.Persistence("find user", err)
	}

	ok, err := s.hasher.Compare(u.PasswordHash, password)
	if err != nil {
		slog.Warn("Stored password hash is unusable", "user_id", u.ID, "err", err)
		return Session{}, errInvalidCredentials
	}
	if !ok {
		return Session{}, errInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("failed to issue token: %w", err)
	}
	slog.Info("User logged in", "user_id", u.ID, "role", u.Role)
	return Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, actor entity.Identity) (entity.User, error) {
	if !actor.Authenticated() {
		return entity.User{}, entity.ErrUnauthenticated
	}
	u, err := s.users.FindUserByID(ctx, actor.UserID)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.User{}, entity.ErrUnauthenticated
	}
	if err != nil {
		return entity.User{}, entity.Persistence("find user", err)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor entity.Identity) ([]entity.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.FindUsers(ctx)
	if err != nil {
		return nil, entity.Persistence("list users", err)
	}
	return users, nil
}

// CreateUser lets an administrator create an account with any role.
func (s *UserService) CreateUser(ctx context.Context, actor entity.Identity, in UserInput) (entity.User, error) {
	if err := requireAdmin(actor); err != nil {
		return entity.User{}, err
	}
	if in.Role == "" {
		in.Role = string(entity.RoleCustomer)
	}
	return s.create(ctx, in)
}

// GetUser returns an account to an administrator or to its owner.
func (s *UserService) GetUser(ctx context.Context, actor entity.Identity, id string) (entity.User, error) {
	if !actor.Authenticated() {
		return entity.User{}, entity.ErrUnauthenticated
	}
	if actor.UserID != id && !actor.Role.IsAdmin() {
		return entity.User{}, entity.ErrForbidden
	}
	u, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return entity.User{}, entity.Persistence("find user", err)
	}
	return u, nil
}

// UpdateUser changes an account. Owners may edit their name, email and
// password; only administrators may change a role.
func (s *UserService) UpdateUser(ctx context.Context, actor entity.Identity, id string, in UserInput) (entity.User, error) {
	if !actor.Authenticated() {
		return entity.User{}, entity.ErrUnauthenticated
	}
	if actor.UserID != id && !actor.Role.IsAdmin() {
		return entity.User{}, entity.ErrForbidden
	}
	u, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return entity.User{}, entity.Persistence("find user", err)
	}

	verr := &entity.ValidationError{}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if in.Email != "" {
		email := entity.NormalizeEmail(in.Email)
		if _, err := mail.ParseAddress(email); err != nil {
			verr.Add("email", "is invalid")
		}
		u.Email = email
	}
	if in.Password != "" {
		if len(in.Password) < MinPasswordLength {
			verr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
		} else {
			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return entity.User{}, err
			}
			u.PasswordHash = hash
		}
	}
	if in.Role != "" {
		role, err := entity.ParseRole(in.Role)
		switch {
		case err != nil:
			verr.Add("role", "is unknown")
		case role != u.Role && !actor.Role.IsAdmin():
			return entity.User{}, fmt.Errorf("%w: only administrators can change roles", entity.ErrForbidden)
		default:
			u.Role = role
		}
	}
	if err := verr.OrNil(); err != nil {
		return entity.User{}, err
	}

	u.UpdatedAt = s.now()
	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return entity.User{}, entity.Persistence("update user", err)
	}
	slog.Info("User updated", "user_id", updated.ID, "by", actor.UserID)
	return updated, nil
}

// DeleteUser removes an account. Administrator accounts cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, actor entity.Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	u, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return entity.Persistence("find user", err)
	}
	if u.Role.IsAdmin() {
		return fmt.Errorf("%w: administrator accounts cannot be deleted", entity.ErrForbidden)
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return entity.Persistence("delete user", err)
	}
	slog.Info("User deleted", "user_id", id, "by", actor.UserID)
	return nil
}

func (s *UserService) create(ctx context.Context, in UserInput) (entity.User, error) {
	verr := &entity.ValidationError{}
	name := strings.TrimSpace(in.Name)
	email := entity.NormalizeEmail(in.Email)
	if name == "" {
		verr.Add("name", "is required")
	}
	if email == "" {
		verr.Add("email", "is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "is invalid")
	}
	if len(in.Password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	role, err := entity.ParseRole(in.Role)
	if err != nil {
		verr.Add("role", "is unknown")
	}
	if err := verr.OrNil(); err != nil {
		return entity.User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return entity.User{}, err
	}
	now := s.now()
	u := entity.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.CreateUser(ctx, u)
	if errors.Is(err, entity.ErrConflict) {
		return entity.User{}, fmt.Errorf("%w: email is already registered", entity.ErrConflict)
	}
	if err != nil {
		return entity.User{}, entity.Persistence("create user", err)
	}
	slog.Info("User created", "user_id", created.ID, "role", created.Role)
	return created, nil
}

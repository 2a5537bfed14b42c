package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxUsernameLength = 50
)

// UserService encapsulates account use-cases.
type UserService struct {
	users  store.Collection[types.User]
	events EventPublisher

	// mu serialises writes that check username and email uniqueness.
	mu sync.Mutex
}

func NewUserService(users store.Collection[types.User], events EventPublisher) *UserService {
	return &UserService{users: users, events: orNoop(events)}
}

// RegisterInput carries the fields of a self sign-up.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// UpdateUserInput lists the changeable profile fields. Nil means unchanged.
type UpdateUserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
	Password *string `json:"password"`
}

func (s *UserService) Get(ctx context.Context, id int) (types.User, error) {
	return s.users.Get(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return types.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, strings.TrimSpace(username)) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (s *UserService) List(ctx context.Context, query string, page PageRequest) (types.Page[types.User], error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return types.Page[types.User]{}, err
	}
	return paginate(store.Search(users, query), page), nil
}

// Register creates a USER account with an ACTIVE status.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	return s.create(ctx, in, types.RoleUser)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role types.Role) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	if err := validateUsername(in.Username); err != nil {
		return types.User{}, err
	}
	if !ValidateEmail(in.Email) {
		return types.User{}, invalid("email", "email is not valid")
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(ctx, 0, in.Username, in.Email); err != nil {
		return types.User{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         role,
		Status:       types.UserActive,
		PasswordHash: hash,
	})
	if err != nil {
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	emit(ctx, s.events, "user", "created", user.ID, user.Public())
	return user, nil
}

// Authenticate verifies credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if user.PasswordHash == "" {
		return types.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	if user.Status != types.UserActive {
		return types.User{}, ErrInactive
	}
	return user, nil
}

// Update changes profile fields. Only the account itself or an ADMIN may do so.
func (s *UserService) Update(ctx context.Context, actor types.User, id int, in UpdateUserInput) (types.User, error) {
	if actor.ID != id && !actor.HasRole(types.RoleAdmin) {
		return types.User{}, ErrForbidden
	}

	patch := store.Patch{}
	var username, email string
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if err := validateUsername(username); err != nil {
			return types.User{}, err
		}
		patch["username"] = username
	}
	if in.Email != nil {
		email = strings.TrimSpace(*in.Email)
		if !ValidateEmail(email) {
			return types.User{}, invalid("email", "email is not valid")
		}
		patch["email"] = email
	}
	if in.FullName != nil {
		patch["fullName"] = strings.TrimSpace(*in.FullName)
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return types.User{}, err
		}
		patch["passwordHash"] = hash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if username != "" || email != "" {
		if err := s.checkUnique(ctx, id, username, email); err != nil {
			return types.User{}, err
		}
	}

	user, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return types.User{}, err
	}
	emit(ctx, s.events, "user", "updated", user.ID, user.Public())
	return user, nil
}

// SetStatus rejects values outside the enumerated set without touching the record.
func (s *UserService) SetStatus(ctx context.Context, id int, value string) (types.User, error) {
	status, ok := types.ParseUserStatus(value)
	if !ok {
		return types.User{}, invalid("status", fmt.Sprintf("status must be one of %v", types.UserStatuses))
	}
	user, err := s.users.Update(ctx, id, store.Patch{"status": status})
	if err != nil {
		return types.User{}, err
	}
	emit(ctx, s.events, "user", "status_changed", user.ID, map[string]any{"status": status})
	return user, nil
}

func (s *UserService) SetRole(ctx context.Context, id int, value string) (types.User, error) {
	role, ok := types.ParseRole(value)
	if !ok {
		return types.User{}, invalid("role", fmt.Sprintf("role must be one of %v", types.Roles))
	}
	user, err := s.users.Update(ctx, id, store.Patch{"role": role})
	if err != nil {
		return types.User{}, err
	}
	emit(ctx, s.events, "user", "role_changed", user.ID, map[string]any{"role": role})
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	ok, err := s.users.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	emit(ctx, s.events, "user", "deleted", id, nil)
	return nil
}

// EnsureAdmin creates an ADMIN account named username unless one exists.
// It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	if _, err := s.GetByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	_, err := s.create(ctx, RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		FullName: "Administrator",
	}, types.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return true, nil
}

// checkUnique must be called with s.mu held.
func (s *UserService) checkUnique(ctx context.Context, selfID int, username, email string) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID == selfID {
			continue
		}
		if username != "" && strings.EqualFold(u.Username, username) {
			return conflict("username %q already exists", username)
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return conflict("email %q already registered", email)
		}
	}
	return nil
}

func validateUsername(username string) error {
	if err := required("username", username); err != nil {
		return err
	}
	if len(username) < 3 {
		return invalid("username", "username must be at least 3 characters")
	}
	return maxLength("username", username, maxUsernameLength)
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", invalid("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

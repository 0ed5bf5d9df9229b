package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/kasuboski/moviez/pkg/api"
	"github.com/kasuboski/moviez/pkg/logger"
	"github.com/kasuboski/moviez/pkg/observer"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("unknown role")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole returns the role named by s
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Action is something a role may be allowed to do
type Action string

const (
	ActionRead   Action = "read"
	ActionFilter Action = "filter"
	ActionStats  Action = "stats"
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists every action in display order
var Actions = []Action{ActionRead, ActionFilter, ActionStats, ActionAdd, ActionUpdate, ActionDelete}

var capabilities = map[Role]map[Action]bool{
	RoleUser: {
		ActionRead:   true,
		ActionFilter: true,
		ActionStats:  true,
	},
	RoleAdmin: {
		ActionRead:   true,
		ActionFilter: true,
		ActionStats:  true,
		ActionAdd:    true,
		ActionUpdate: true,
		ActionDelete: true,
	},
}

// Allowed reports whether role may perform action
func Allowed(role Role, action Action) bool {
	return capabilities[role][action]
}

type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

func userFrom(u api.User) (User, error) {
	role, err := ParseRole(u.Role)
	if err != nil {
		return User{}, err
	}
	return User{Username: u.Username, Email: u.Email, Role: role}, nil
}

// Authenticator is the part of the API a Gate needs
type Authenticator interface {
	CheckSession(ctx context.Context) (api.AuthStatus, error)
	Login(ctx context.Context, credentials api.Credentials) (api.User, error)
	Register(ctx context.Context, profile api.Profile) error
	Logout(ctx context.Context) error
}

// Gate holds the authentication state and answers capability questions.
// A nil user means no session.
type Gate struct {
	auth     Authenticator
	validate *validator.Validate

	mu        sync.RWMutex
	user      *User
	listeners observer.List[*User]
}

func New(auth Authenticator) *Gate {
	return &Gate{
		auth:     auth,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Check asks the API for the current session. A failed check leaves no session.
func (g *Gate) Check(ctx context.Context) error {
	status, err := g.auth.CheckSession(ctx)
	if err != nil {
		g.set(nil)
		return err
	}

	if !status.Authenticated || status.User == nil {
		g.set(nil)
		return nil
	}

	user, err := userFrom(*status.User)
	if err != nil {
		g.set(nil)
		return err
	}

	g.set(&user)
	return nil
}

// Login validates credentials locally before opening a session
func (g *Gate) Login(ctx context.Context, credentials api.Credentials) (User, error) {
	credentials.Username = strings.TrimSpace(credentials.Username)
	if err := g.validate.Struct(credentials); err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	u, err := g.auth.Login(ctx, credentials)
	if err != nil {
		return User{}, err
	}

	user, err := userFrom(u)
	if err != nil {
		return User{}, err
	}

	logger.FromCtx(ctx).Debugw("logged in", "username", user.Username, "role", user.Role)
	g.set(&user)
	return user, nil
}

// Register creates an account and logs into it. Role defaults to user.
func (g *Gate) Register(ctx context.Context, profile api.Profile) (User, error) {
	profile.Username = strings.TrimSpace(profile.Username)
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.Role == "" {
		profile.Role = string(RoleUser)
	}

	if err := g.validate.Struct(profile); err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	if err := g.auth.Register(ctx, profile); err != nil {
		return User{}, err
	}

	return g.Login(ctx, api.Credentials{Username: profile.Username, Password: profile.Password})
}

// Logout clears the local session even when the remote call fails
func (g *Gate) Logout(ctx context.Context) error {
	err := g.auth.Logout(ctx)
	if err != nil {
		logger.FromCtx(ctx).Errorw("logout request failed", "error", err)
	}

	g.set(nil)
	return err
}

// Clear drops the local session without calling the API
func (g *Gate) Clear() {
	g.set(nil)
}

// User returns the signed in user
func (g *Gate) User() (User, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.user == nil {
		return User{}, false
	}
	return *g.user, true
}

func (g *Gate) IsAuthenticated() bool {
	_, ok := g.User()
	return ok
}

// Can reports whether the current session may perform action. No session can do nothing.
func (g *Gate) Can(action Action) bool {
	user, ok := g.User()
	if !ok {
		return false
	}
	return Allowed(user.Role, action)
}

// Subscribe registers fn to run whenever the session changes; nil means signed out
func (g *Gate) Subscribe(fn func(*User)) (unsubscribe func()) {
	return g.listeners.Subscribe(fn)
}

func (g *Gate) set(user *User) {
	g.mu.Lock()
	g.user = user
	g.mu.Unlock()

	g.listeners.Publish(user)
}

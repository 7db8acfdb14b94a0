package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/platform/apperr"
	"github.com/frat/frat/internal/platform/auth"
	"github.com/frat/frat/internal/platform/session"
)

// registrableRoles are the roles a user may pick at registration.
var registrableRoles = map[string]bool{
	auth.RoleDoctor: true,
	auth.RoleNurse:  true,
	auth.RoleUser:   true,
}

type Service struct {
	repo    Repository
	issuer  *auth.TokenIssuer
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewService(repo Repository, issuer *auth.TokenIssuer, logger zerolog.Logger, timeout time.Duration) *Service {
	return &Service{
		repo:    repo,
		issuer:  issuer,
		logger:  logger.With().Str("component", "account").Logger(),
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User  Profile `json:"user"`
	Token string  `json:"token"`
}

// Login checks identifier (username or email) and password, issues an
// access token and mirrors it into sess.
func (s *Service) Login(ctx context.Context, sess *session.Session, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	u, err := s.repo.FindByLogin(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Storage("find user", err)
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info().Str("username", u.Username).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(auth.Subject{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, err
	}
	if sess != nil {
		sess.Login(token, u.ID, u.Username, u.Role)
	}
	if err := s.repo.TouchLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("failed to record last login")
	}
	return &LoginResult{User: u.Profile(), Token: token}, nil
}

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Register creates a user. Role defaults to doctor; admin cannot be
// self-assigned.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" ||
		strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, ErrFieldsRequired
	}
	if req.Role == "" {
		req.Role = auth.RoleDoctor
	}
	if !registrableRoles[req.Role] {
		return nil, ErrInvalidRole
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("username", u.Username).Str("role", u.Role).Msg("user registered")
	p := u.Profile()
	return &p, nil
}

func (s *Service) create(ctx context.Context, u *User) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	// Username and email share one namespace for login, so an email equal
	// to an existing username is also a conflict.
	for _, ident := range []string{u.Username, u.Email} {
		_, err := s.repo.FindByLogin(ctx, ident)
		if err == nil {
			return ErrUserExists
		}
		if !errors.Is(err, ErrUserNotFound) {
			return apperr.Storage("find user", err)
		}
	}
	return apperr.Storage("create user", s.repo.Create(ctx, u))
}

// Logout destroys sess.
func (s *Service) Logout(sess *session.Session) {
	if sess != nil {
		sess.Destroy()
	}
}

// Status describes the session's sign-in state.
type Status struct {
	Authenticated bool         `json:"authenticated"`
	User          *SessionUser `json:"user,omitempty"`
}

// SessionUser is the user recorded in a session.
type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Service) Status(sess *session.Session) Status {
	if !sess.Authenticated() || sess.UserID == "" {
		return Status{}
	}
	return Status{
		Authenticated: true,
		User:          &SessionUser{ID: sess.UserID, Username: sess.Username, Role: sess.Role},
	}
}

// List returns every user profile.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Storage("list users", err)
	}
	out := make([]Profile, len(users))
	for i, u := range users {
		out[i] = u.Profile()
	}
	return out, nil
}

// defaultUsers are created on first start so a fresh deployment can be
// signed into.
var defaultUsers = []struct {
	User
	password string
}{
	{User{Username: "admin", Email: "admin@inlignx.com", FirstName: "System", LastName: "Administrator", Role: auth.RoleAdmin}, "admin123"},
	{User{Username: "doctor", Email: "doctor@inlignx.com", FirstName: "Dr. John", LastName: "Smith", Role: auth.RoleDoctor}, "doctor123"},
}

// SeedDefaults creates the default users when the store has none and
// returns how many were created.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	cctx, cancel := s.bounded(ctx)
	n, err := s.repo.Count(cctx)
	cancel()
	if err != nil {
		return 0, apperr.Storage("count users", err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	for _, d := range defaultUsers {
		hash, err := auth.HashPassword(d.password)
		if err != nil {
			return created, err
		}
		u := d.User
		u.PasswordHash = hash
		u.IsActive = true
		u.CreatedAt = s.now().UTC()
		if err := s.create(ctx, &u); err != nil {
			return created, err
		}
		created++
	}
	s.logger.Warn().Int("count", created).Msg("created default users; change their passwords")
	return created, nil
}

// Import stores a user read from a bundle. The password hash is kept as
// is. Existing users are left untouched and reported as not created.
func (s *Service) Import(ctx context.Context, u *User) (bool, error) {
	u.Email = normalizeEmail(u.Email)
	if u.Username == "" || u.Email == "" || u.PasswordHash == "" {
		return false, ErrFieldsRequired
	}
	if u.Role == "" {
		u.Role = auth.RoleDoctor
	}
	u.IsActive = true
	err := s.create(ctx, u)
	if errors.Is(err, ErrUserExists) {
		return false, nil
	}
	return err == nil, err
}

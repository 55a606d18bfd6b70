package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/internal/auth"
	"account-service/internal/domain"
	"account-service/internal/events"
	"account-service/internal/repository"
)

var (
	// ErrInvalidInput indicates a required signup field is missing.
	ErrInvalidInput = errors.New("username, email, and password are required")
	// ErrWeakPassword indicates the password fails the strength policy.
	ErrWeakPassword = errors.New("password is weak: it must be at least 8 characters long and contain letters and numbers")
	// ErrDuplicateUsername is returned when another account owns the username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail is returned when another account owns the email.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrAuthFailure indicates bad credentials. It never says which part was wrong.
	ErrAuthFailure = errors.New("incorrect username or password")
	// ErrUnauthenticated indicates a missing, invalid or expired token, or a
	// token whose subject no longer exists.
	ErrUnauthenticated = errors.New("could not validate credentials")
	// ErrNoChanges is returned when an update carries nothing to apply.
	ErrNoChanges = errors.New("no valid fields to update")
	// ErrAccountDisabled is returned for a disabled account that otherwise authenticated.
	ErrAccountDisabled = errors.New("account is disabled")
)

// TokenTypeBearer is the token type reported with every issued session.
const TokenTypeBearer = "bearer"

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// AccountService describes the account lifecycle and credential operations.
type AccountService interface {
	CreateAccount(ctx context.Context, account domain.NewAccount) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	UpdateAccount(ctx context.Context, current *domain.User, update domain.UserUpdate) ([]string, error)
}

type accountService struct {
	users  repository.UserRepository
	hasher auth.Hasher
	tokens *auth.TokenService
	events events.Publisher
	keys   *keyedMutex

	// compared against when the username is unknown so both failure paths cost a hash
	dummyHash string
}

func NewAccountService(users repository.UserRepository, hasher auth.Hasher, tokens *auth.TokenService, publisher events.Publisher) AccountService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	dummy, _ := hasher.Hash("not-a-real-password-0")
	return &accountService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		events:    publisher,
		keys:      newKeyedMutex(),
		dummyHash: dummy,
	}
}

func (s *accountService) CreateAccount(ctx context.Context, account domain.NewAccount) (*domain.User, error) {
	username := strings.TrimSpace(account.Username)
	email := strings.TrimSpace(account.Email)
	if username == "" || email == "" || account.Password == "" {
		return nil, ErrInvalidInput
	}
	if !auth.IsStrongPassword(account.Password) {
		return nil, ErrWeakPassword
	}

	unlock := s.keys.Lock(usernameKey(username), emailKey(email))
	defer unlock()

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(account.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		FullName:     account.FullName,
		PasswordHash: hash,
		Disabled:     account.Disabled,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, translateConflict(err)
	}

	s.events.Publish(ctx, events.Event{
		Kind:     events.AccountCreated,
		UserID:   user.ID,
		Username: user.Username,
		At:       user.CreatedAt,
	})

	return user.Sanitized(), nil
}

func (s *accountService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		s.loginFailed(ctx, username)
		return nil, ErrAuthFailure
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, username)
		return nil, ErrAuthFailure
	}

	return user.Sanitized(), nil
}

func (s *accountService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	token, expiresAt, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.events.Publish(ctx, events.Event{
		Kind:     events.AccountLogin,
		UserID:   user.ID,
		Username: user.Username,
		At:       time.Now().UTC(),
	})

	return &Session{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *accountService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	username, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	return user.Sanitized(), nil
}

func (s *accountService) UpdateAccount(ctx context.Context, current *domain.User, update domain.UserUpdate) ([]string, error) {
	if current == nil {
		return nil, ErrUnauthenticated
	}

	username := trimmed(update.Username)
	email := trimmed(update.Email)

	var lockKeys []string
	if username != "" {
		lockKeys = append(lockKeys, usernameKey(username))
	}
	if email != "" {
		lockKeys = append(lockKeys, emailKey(email))
	}
	unlock := s.keys.Lock(lockKeys...)
	defer unlock()

	var (
		changes repository.UserChanges
		fields  []string
	)

	if username != "" {
		owner, err := s.users.GetByUsername(ctx, username)
		switch {
		case err == nil && owner.ID != current.ID:
			return nil, ErrDuplicateUsername
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("lookup username: %w", err)
		}
		changes.Username = &username
		fields = append(fields, domain.FieldUsername)
	}

	if email != "" {
		owner, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != current.ID:
			return nil, ErrDuplicateEmail
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("lookup email: %w", err)
		}
		changes.Email = &email
		fields = append(fields, domain.FieldEmail)
	}

	if update.FullName != nil && *update.FullName != "" {
		fullName := *update.FullName
		changes.FullName = &fullName
		fields = append(fields, domain.FieldFullName)
	}

	if update.Disabled != nil {
		disabled := *update.Disabled
		changes.Disabled = &disabled
		fields = append(fields, domain.FieldDisabled)
	}

	if update.Password != nil && *update.Password != "" {
		if !auth.IsStrongPassword(*update.Password) {
			return nil, ErrWeakPassword
		}
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, err
		}
		changes.PasswordHash = &hash
		fields = append(fields, domain.FieldPassword)
	}

	if changes.Empty() {
		return nil, ErrNoChanges
	}

	if err := s.users.Update(ctx, current.Username, changes); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, translateConflict(err)
	}

	s.events.Publish(ctx, events.Event{
		Kind:     events.AccountUpdated,
		UserID:   current.ID,
		Username: current.Username,
		Fields:   fields,
		At:       time.Now().UTC(),
	})

	return fields, nil
}

func (s *accountService) loginFailed(ctx context.Context, username string) {
	s.events.Publish(ctx, events.Event{
		Kind:     events.AccountLoginFailed,
		Username: username,
		At:       time.Now().UTC(),
	})
}

// translateConflict maps directory uniqueness errors onto the service taxonomy.
func translateConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		return ErrDuplicateUsername
	case errors.Is(err, repository.ErrEmailTaken):
		return ErrDuplicateEmail
	}
	return err
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func usernameKey(v string) string { return "username:" + v }
func emailKey(v string) string    { return "email:" + v }

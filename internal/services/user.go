package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/printables-app/server/internal/mail"
	"github.com/printables-app/server/internal/storage"
	"github.com/printables-app/server/internal/store"
	"github.com/printables-app/server/internal/token"
	"github.com/printables-app/server/types"
	"golang.org/x/crypto/bcrypt"
)

const confirmMailSubject = "Confirm Your Printables Account"

var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on bad username/password pairs.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified is returned when the account has not confirmed its
	// email address yet.
	ErrNotVerified = errors.New("email not verified")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	MarkVerified(ctx context.Context, id int) error
}

// UserService encapsulates the account lifecycle: register, confirm,
// authenticate.
type UserService struct {
	repo    UserRepository
	files   storage.FileStore
	tokens  *token.Service
	mailer  mail.Mailer
	baseURL string
}

func NewUserService(repo UserRepository, files storage.FileStore, tokens *token.Service, mailer mail.Mailer, baseURL string) *UserService {
	return &UserService{
		repo:    repo,
		files:   files,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: baseURL,
	}
}

// Register creates an unverified account, prepares its file namespace and
// sends the confirmation mail. The user row is committed before the mail
// is attempted; a send failure is logged and never unwinds registration.
func (s *UserService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		IsVerified:   false,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrUsernameTaken
		}
		return types.User{}, err
	}

	if err := s.files.EnsureNamespace(ctx, user.Username); err != nil {
		log.Printf("create namespace for %s: %v", user.Username, err)
	}

	s.sendConfirmation(ctx, user)
	return user, nil
}

// Authenticate verifies the credentials and the verification gate.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return types.User{}, ErrNotVerified
	}
	return user, nil
}

// Confirm redeems a confirmation token and marks the account verified.
// Redeeming a token for an already-verified account is a success no-op.
func (s *UserService) Confirm(ctx context.Context, tokenString string) (alreadyVerified bool, err error) {
	username, err := s.tokens.Redeem(tokenString)
	if err != nil {
		return false, err
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if user.IsVerified {
		return true, nil
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *UserService) sendConfirmation(ctx context.Context, user types.User) {
	confirmToken, err := s.tokens.Issue(user.Username)
	if err != nil {
		log.Printf("issue confirmation token for %s: %v", user.Username, err)
		return
	}

	link := fmt.Sprintf("%s/confirm/%s", s.baseURL, confirmToken)
	body := fmt.Sprintf(
		"Hello %s,\n\nClick this link to confirm your registration:\n%s\n\nThis link expires in 1 hour.",
		user.Username, link,
	)
	if err := s.mailer.Send(ctx, user.Email, confirmMailSubject, body); err != nil {
		log.Printf("send confirmation mail to %s: %v", user.Email, err)
	}
}

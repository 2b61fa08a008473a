package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates a user and its credential in one transaction
type RegisterUserHandler struct {
	repo   RepositoryManager
	hasher PasswordHasher
}

func NewRegisterUserHandler(repo RepositoryManager, hasher PasswordHasher) *RegisterUserHandler {
	if hasher == nil {
		hasher = NewPasswordHasher(HasherOptions{})
	}
	return &RegisterUserHandler{repo: repo, hasher: hasher}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	_, err := h.Register(ctx, event)
	return err
}

// Register runs the command and returns the stored user
func (h *RegisterUserHandler) Register(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	var user *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := h.hasher.HashPassword(ctx, event.Password)
	if err != nil {
		return nil, err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrAlreadyRegistered
		} else if !goerrors.Is(err, ErrIdentityNotFound) {
			return err
		}

		user, err = h.repo.Users().RegisterTx(ctx, tx, &User{
			Email:        event.Email,
			Username:     event.Username,
			PasswordHash: hash,
		})
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, err
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}

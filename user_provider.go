package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserStore is the subset of Users the provider needs
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

// UserProvider implements IdentityStore on top of the users repository
type UserProvider struct {
	store  UserStore
	logger Logger
}

var _ IdentityStore = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// FindCredentialByLookupKey returns the stored credential for an email
func (u *UserProvider) FindCredentialByLookupKey(ctx context.Context, email string) (*StoredCredential, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user credential")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return &StoredCredential{
		Subject:      user.Subject(),
		PasswordHash: user.PasswordHash,
	}, nil
}

// FindIdentityBySubjectKey resolves a verified token subject
func (u *UserProvider) FindIdentityBySubjectKey(ctx context.Context, subject SubjectKey) (Identity, error) {
	if !subject.Valid() {
		return nil, ErrTokenSubject
	}

	user, err := u.store.GetByID(ctx, int64(subject))
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user by subject")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return NewIdentityFromUser(user), nil
}

// CreateAccount persists a new user
func (u *UserProvider) CreateAccount(ctx context.Context, account Account) (Identity, error) {
	user, err := u.store.Register(ctx, &User{
		Email:        account.Email,
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			return nil, ErrAlreadyRegistered
		}
		u.logger.Error("UserProvider create account failed: %v", err)
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

// UpdateCredential replaces the stored credential wholesale
func (u *UserProvider) UpdateCredential(ctx context.Context, subject SubjectKey, passwordHash string) error {
	return u.store.UpdatePasswordHash(ctx, int64(subject), passwordHash)
}

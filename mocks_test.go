package auth_test

import (
	"context"
	"sync"

	auth "github.com/goliatone/go-flashcards-auth"
	"github.com/stretchr/testify/mock"
)

// MockIdentityStore implements auth.IdentityStore
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) FindCredentialByLookupKey(ctx context.Context, email string) (*auth.StoredCredential, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*auth.StoredCredential), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityStore) FindIdentityBySubjectKey(ctx context.Context, subject auth.SubjectKey) (auth.Identity, error) {
	args := m.Called(ctx, subject)
	if v := args.Get(0); v != nil {
		return v.(auth.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityStore) CreateAccount(ctx context.Context, account auth.Account) (auth.Identity, error) {
	args := m.Called(ctx, account)
	if v := args.Get(0); v != nil {
		return v.(auth.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityStore) UpdateCredential(ctx context.Context, subject auth.SubjectKey, passwordHash string) error {
	args := m.Called(ctx, subject, passwordHash)
	return args.Error(0)
}

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	if v := args.Get(0); v != nil {
		return v.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockHasher implements auth.PasswordHasher and auth.RehashChecker
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) HashPassword(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) ComparePasswordAndHash(ctx context.Context, password, hash string) (bool, error) {
	args := m.Called(ctx, password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockHasher) NeedsRehash(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

// TestIdentity is a minimal auth.Identity
type TestIdentity struct {
	id       auth.SubjectKey
	username string
	email    string
}

func (t TestIdentity) ID() auth.SubjectKey { return t.id }
func (t TestIdentity) Username() string    { return t.username }
func (t TestIdentity) Email() string       { return t.email }

// capturingSink records activity events
type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) types() []auth.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}

func testOptions() auth.Options {
	return auth.Options{
		SigningKey: "test-signing-key",
		Issuer:     "flashcards-test",
		Hasher: auth.HasherOptions{
			BcryptCost: 4,
		},
	}
}

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-flashcards-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAuther(t *testing.T, store auth.IdentityStore) *auth.Auther {
	t.Helper()
	a, err := auth.NewAuthenticator(store, testOptions())
	require.NoError(t, err)
	return a.WithLogger(auth.NoopLogger()).WithClock(fixedClock(testNow))
}

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.NewBcryptHasher(4).HashPassword(context.Background(), password)
	require.NoError(t, err)
	return h
}

func TestNewAuthenticator_RequiresKeyAndStore(t *testing.T) {
	_, err := auth.NewAuthenticator(nil, testOptions())
	assert.Error(t, err)

	_, err = auth.NewAuthenticator(new(MockIdentityStore), auth.Options{})
	assert.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdentityStore)
	sink := &capturingSink{}

	store.On("FindCredentialByLookupKey", ctx, "a@x.com").
		Return(&auth.StoredCredential{Subject: 7, PasswordHash: bcryptHash(t, "Secr3t!")}, nil).Once()

	a := newTestAuther(t, store).WithActivitySink(sink)

	res, err := a.Login(ctx, "  A@X.com ", "Secr3t!")
	require.NoError(t, err)

	assert.Equal(t, auth.TokenTypeBearer, res.TokenType)
	assert.NotEmpty(t, res.AccessToken)
	assert.True(t, testNow.Add(time.Hour).Equal(res.ExpiresAt))

	subject, err := a.TokenService().Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.SubjectKey(7), subject)

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, sink.types())
	store.AssertExpectations(t)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		setup func(store *MockIdentityStore)
	}{
		{
			name: "unknown account",
			setup: func(store *MockIdentityStore) {
				store.On("FindCredentialByLookupKey", ctx, "a@x.com").Return(nil, auth.ErrIdentityNotFound)
			},
		},
		{
			name: "wrong password",
			setup: func(store *MockIdentityStore) {
				store.On("FindCredentialByLookupKey", ctx, "a@x.com").
					Return(&auth.StoredCredential{Subject: 7, PasswordHash: bcryptHash(t, "other")}, nil)
			},
		},
		{
			name: "malformed stored credential",
			setup: func(store *MockIdentityStore) {
				store.On("FindCredentialByLookupKey", ctx, "a@x.com").
					Return(&auth.StoredCredential{Subject: 7, PasswordHash: "plaintext"}, nil)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(MockIdentityStore)
			tc.setup(store)
			sink := &capturingSink{}
			a := newTestAuther(t, store).WithActivitySink(sink)

			res, err := a.Login(ctx, "a@x.com", "Secr3t!")
			assert.Empty(t, res.AccessToken)
			assert.Same(t, auth.ErrInvalidCredentials, err)
			var ge *goerrors.Error
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, "invalid credentials", ge.Message)
			assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginFailure}, sink.types())
		})
	}
}

func TestLogin_UnknownAccountRunsDecoyCompare(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdentityStore)
	hasher := new(MockHasher)

	store.On("FindCredentialByLookupKey", ctx, "ghost@x.com").Return(nil, auth.ErrIdentityNotFound).Twice()
	hasher.On("HashPassword", mock.Anything, mock.Anything).Return("decoy-hash", nil).Once()
	hasher.On("ComparePasswordAndHash", ctx, "pw", "decoy-hash").Return(false, nil).Twice()

	a := newTestAuther(t, store).WithHasher(hasher)

	for i := 0; i < 2; i++ {
		_, err := a.Login(ctx, "ghost@x.com", "pw")
		assert.Same(t, auth.ErrInvalidCredentials, err)
	}

	hasher.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestLogin_DecoyRetriedAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdentityStore)
	hasher := new(MockHasher)

	store.On("FindCredentialByLookupKey", ctx, "ghost@x.com").Return(nil, auth.ErrIdentityNotFound).Times(3)
	hasher.On("HashPassword", mock.Anything, mock.Anything).Return("", auth.ErrHasherBusy).Times(3)
	hasher.On("HashPassword", mock.Anything, mock.Anything).Return("decoy-hash", nil).Once()
	hasher.On("ComparePasswordAndHash", ctx, "pw", "decoy-hash").Return(false, nil).Twice()
	hasher.On("ComparePasswordAndHash", ctx, "pw", mock.Anything).Return(false, nil).Once()

	a := newTestAuther(t, store).WithHasher(hasher)

	for i := 0; i < 3; i++ {
		_, err := a.Login(ctx, "ghost@x.com", "pw")
		assert.Same(t, auth.ErrInvalidCredentials, err)
	}

	hasher.AssertNumberOfCalls(t, "HashPassword", 4)
	hasher.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestLogin_DecoySurvivesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := new(MockIdentityStore)
	hasher := new(MockHasher)

	store.On("FindCredentialByLookupKey", ctx, "ghost@x.com").Return(nil, auth.ErrIdentityNotFound)
	hasher.On("HashPassword", mock.MatchedBy(func(c context.Context) bool {
		return c.Err() == nil
	}), mock.Anything).Return("decoy-hash", nil).Once()
	hasher.On("ComparePasswordAndHash", ctx, "pw", "decoy-hash").Return(false, nil).Once()

	_, err := newTestAuther(t, store).WithHasher(hasher).Login(ctx, "ghost@x.com", "pw")
	assert.Same(t, auth.ErrInvalidCredentials, err)
	hasher.AssertExpectations(t)
}

func TestLogin_InternalErrorsPassThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("store failure", func(t *testing.T) {
		store := new(MockIdentityStore)
		dbErr := errors.New("connection reset")
		store.On("FindCredentialByLookupKey", ctx, "a@x.com").Return(nil, dbErr)

		_, err := newTestAuther(t, store).Login(ctx, "a@x.com", "pw")
		assert.Same(t, dbErr, err)
	})

	t.Run("hasher busy", func(t *testing.T) {
		store := new(MockIdentityStore)
		hasher := new(MockHasher)
		store.On("FindCredentialByLookupKey", ctx, "a@x.com").
			Return(&auth.StoredCredential{Subject: 7, PasswordHash: "h"}, nil)
		hasher.On("ComparePasswordAndHash", ctx, "pw", "h").Return(false, auth.ErrHasherBusy)

		_, err := newTestAuther(t, store).WithHasher(hasher).Login(ctx, "a@x.com", "pw")
		assert.ErrorIs(t, err, auth.ErrHasherBusy)
	})
}

func TestLogin_RehashesOutdatedCredential(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdentityStore)
	hasher := new(MockHasher)

	store.On("FindCredentialByLookupKey", ctx, "a@x.com").
		Return(&auth.StoredCredential{Subject: 7, PasswordHash: "old"}, nil)
	hasher.On("ComparePasswordAndHash", ctx, "pw", "old").Return(true, nil)
	hasher.On("NeedsRehash", "old").Return(true)
	hasher.On("HashPassword", ctx, "pw").Return("new", nil)
	store.On("UpdateCredential", ctx, auth.SubjectKey(7), "new").Return(nil).Once()

	_, err := newTestAuther(t, store).WithHasher(hasher).Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	store.AssertExpectations(t)
	hasher.AssertExpectations(t)
}

func TestLogin_RehashFailureDoesNotFailLogin(t *testing.T) {
	ctx := context.Background()
	store := new(MockIdentityStore)
	hasher := new(MockHasher)

	store.On("FindCredentialByLookupKey", ctx, "a@x.com").
		Return(&auth.StoredCredential{Subject: 7, PasswordHash: "old"}, nil)
	hasher.On("ComparePasswordAndHash", ctx, "pw", "old").Return(true, nil)
	hasher.On("NeedsRehash", "old").Return(true)
	hasher.On("HashPassword", ctx, "pw").Return("new", nil)
	store.On("UpdateCredential", ctx, auth.SubjectKey(7), "new").Return(errors.New("read only"))

	res, err := newTestAuther(t, store).WithHasher(hasher).Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
}

func TestRegister_DefaultsUsername(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		username string
		want     string
	}{
		{name: "empty", email: "Carol@x.com", username: "", want: "carol"},
		{name: "blank", email: "dave@x.com", username: "   ", want: "dave"},
		{name: "given", email: "erin@x.com", username: "e", want: "e"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(MockIdentityStore)
			email := auth.NormalizeEmail(tc.email)

			store.On("FindCredentialByLookupKey", ctx, email).Return(nil, auth.ErrIdentityNotFound)
			store.On("CreateAccount", ctx, mock.MatchedBy(func(acc auth.Account) bool {
				return acc.Email == email && acc.Username == tc.want
			})).Return(TestIdentity{id: 9, username: tc.want, email: email}, nil).Once()

			_, err := newTestAuther(t, store).Register(ctx, tc.email, tc.username, "Secr3t!")
			require.NoError(t, err)
			store.AssertExpectations(t)
		})
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account with derived credential", func(t *testing.T) {
		store := new(MockIdentityStore)
		sink := &capturingSink{}

		store.On("FindCredentialByLookupKey", ctx, "a@x.com").Return(nil, auth.ErrIdentityNotFound)
		store.On("CreateAccount", ctx, mock.MatchedBy(func(acc auth.Account) bool {
			ok, err := auth.NewBcryptHasher(4).ComparePasswordAndHash(ctx, "Secr3t!", acc.PasswordHash)
			return acc.Email == "a@x.com" && acc.Username == "alice" && err == nil && ok
		})).Return(TestIdentity{id: 7, username: "alice", email: "a@x.com"}, nil).Once()

		identity, err := newTestAuther(t, store).WithActivitySink(sink).Register(ctx, "A@x.com", "alice", "Secr3t!")
		require.NoError(t, err)
		assert.Equal(t, auth.SubjectKey(7), identity.ID())
		assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventRegistered}, sink.types())
		store.AssertExpectations(t)
	})

	t.Run("existing email conflicts", func(t *testing.T) {
		store := new(MockIdentityStore)
		store.On("FindCredentialByLookupKey", ctx, "a@x.com").
			Return(&auth.StoredCredential{Subject: 7, PasswordHash: "h"}, nil)

		_, err := newTestAuther(t, store).Register(ctx, "a@x.com", "alice", "Secr3t!")
		assert.ErrorIs(t, err, auth.ErrAlreadyRegistered)
		store.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
	})

	t.Run("insert race conflicts", func(t *testing.T) {
		store := new(MockIdentityStore)
		store.On("FindCredentialByLookupKey", ctx, "a@x.com").Return(nil, auth.ErrIdentityNotFound)
		store.On("CreateAccount", ctx, mock.Anything).Return(nil, auth.ErrAlreadyRegistered)

		_, err := newTestAuther(t, store).Register(ctx, "a@x.com", "alice", "Secr3t!")
		assert.ErrorIs(t, err, auth.ErrAlreadyRegistered)
	})

	t.Run("empty password", func(t *testing.T) {
		store := new(MockIdentityStore)
		store.On("FindCredentialByLookupKey", ctx, "a@x.com").Return(nil, auth.ErrIdentityNotFound)

		_, err := newTestAuther(t, store).Register(ctx, "a@x.com", "alice", "")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	identity := TestIdentity{id: 7, username: "alice", email: "a@x.com"}

	t.Run("replaces credential", func(t *testing.T) {
		store := new(MockIdentityStore)
		sink := &capturingSink{}
		store.On("FindIdentityBySubjectKey", ctx, auth.SubjectKey(7)).Return(identity, nil)
		store.On("FindCredentialByLookupKey", ctx, "a@x.com").
			Return(&auth.StoredCredential{Subject: 7, PasswordHash: bcryptHash(t, "old")}, nil)
		store.On("UpdateCredential", ctx, auth.SubjectKey(7), mock.MatchedBy(func(h string) bool {
			ok, err := auth.NewBcryptHasher(4).ComparePasswordAndHash(ctx, "new", h)
			return err == nil && ok
		})).Return(nil).Once()

		err := newTestAuther(t, store).WithActivitySink(sink).ChangePassword(ctx, 7, "old", "new")
		require.NoError(t, err)
		assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventPasswordChanged}, sink.types())
		store.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		store := new(MockIdentityStore)
		store.On("FindIdentityBySubjectKey", ctx, auth.SubjectKey(7)).Return(identity, nil)
		store.On("FindCredentialByLookupKey", ctx, "a@x.com").
			Return(&auth.StoredCredential{Subject: 7, PasswordHash: bcryptHash(t, "old")}, nil)

		err := newTestAuther(t, store).ChangePassword(ctx, 7, "guess", "new")
		assert.Same(t, auth.ErrInvalidCredentials, err)
		store.AssertNotCalled(t, "UpdateCredential", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown subject", func(t *testing.T) {
		store := new(MockIdentityStore)
		store.On("FindIdentityBySubjectKey", ctx, auth.SubjectKey(9)).Return(nil, auth.ErrIdentityNotFound)

		err := newTestAuther(t, store).ChangePassword(ctx, 9, "old", "new")
		assert.Same(t, auth.ErrInvalidCredentials, err)
	})
}

func TestIdentityFromToken(t *testing.T) {
	ctx := context.Background()
	identity := TestIdentity{id: 7, username: "alice", email: "a@x.com"}

	store := new(MockIdentityStore)
	store.On("FindIdentityBySubjectKey", ctx, auth.SubjectKey(7)).Return(identity, nil)
	store.On("FindIdentityBySubjectKey", ctx, auth.SubjectKey(8)).Return(nil, auth.ErrIdentityNotFound)

	a := newTestAuther(t, store)

	token, _, err := a.TokenService().Issue(7)
	require.NoError(t, err)

	got, err := a.IdentityFromToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	deleted, _, err := a.TokenService().Issue(8)
	require.NoError(t, err)

	rejected := map[string]string{
		"empty":           "",
		"garbage":         "not.a.token",
		"flipped":         flipSignatureByte(t, token),
		"deleted subject": deleted,
	}

	for name, raw := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := a.IdentityFromToken(ctx, raw)
			assert.Same(t, auth.ErrUnauthorized, err)
		})
	}

	_, err = a.WithClock(fixedClock(testNow.Add(61*time.Minute))).IdentityFromToken(ctx, token)
	assert.Same(t, auth.ErrUnauthorized, err)
}

func TestSessionFromToken(t *testing.T) {
	a := newTestAuther(t, new(MockIdentityStore))

	token, expiresAt, err := a.TokenService().Issue(7)
	require.NoError(t, err)

	session, err := a.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, auth.SubjectKey(7), session.GetSubject())
	assert.Equal(t, "flashcards-test", session.GetIssuer())
	assert.NotEmpty(t, session.GetTokenID())
	assert.True(t, expiresAt.Equal(session.GetExpiration()))

	_, err = a.SessionFromToken("")
	assert.ErrorIs(t, err, auth.ErrTokenMissing)
}

func TestWithTokenValidator(t *testing.T) {
	a := newTestAuther(t, new(MockIdentityStore))
	called := false
	a.WithTokenValidator(auth.TokenValidatorFunc(func(token string) (auth.AuthClaims, error) {
		called = true
		return nil, auth.ErrTokenMalformed
	}))

	_, err := a.SessionFromToken("anything")
	assert.True(t, called)
	assert.ErrorIs(t, err, auth.ErrTokenMalformed)
}

func TestIdentityFromSession_Nil(t *testing.T) {
	a := newTestAuther(t, new(MockIdentityStore))
	_, err := a.IdentityFromSession(context.Background(), nil)
	assert.ErrorIs(t, err, auth.ErrUnableToDecodeSession)
}

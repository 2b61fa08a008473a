package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-flashcards-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// newTestDB opens a private in-memory sqlite database with the schema in place
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := auth.OpenDB(auth.DatabaseOptions{
		Driver: auth.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.CreateSchema(context.Background(), db))
	return db
}

func TestOpenDB_UnsupportedDriver(t *testing.T) {
	_, err := auth.OpenDB(auth.DatabaseOptions{Driver: "oracle"})
	assert.Error(t, err)

	_, err = auth.OpenDB(auth.DatabaseOptions{Driver: auth.DriverPostgres})
	assert.Error(t, err)
}

func TestCreateSchema_Idempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, auth.CreateSchema(context.Background(), db))
}

func TestUsersRepository_RegisterAndFind(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := auth.NewUsersRepository(newTestDB(t), auth.WithUsersClock(func() time.Time { return created }))

	user, err := repo.Register(ctx, &auth.User{
		Email:        " Alice@Example.com ",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Greater(t, user.ID, int64(0))
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, created.Equal(user.CreatedAt))

	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, auth.SubjectKey(user.ID), byID.Subject())
}

func TestUsersRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewUsersRepository(newTestDB(t))

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	err = repo.UpdatePasswordHash(ctx, 42, "hash")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestUsersRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewUsersRepository(newTestDB(t))

	_, err := repo.Register(ctx, &auth.User{Email: "a@x.com", Username: "a", PasswordHash: "h1"})
	require.NoError(t, err)

	_, err = repo.Register(ctx, &auth.User{Email: "A@X.com", Username: "b", PasswordHash: "h2"})
	assert.ErrorIs(t, err, auth.ErrAlreadyRegistered)

	_, err = repo.Register(ctx, nil)
	assert.ErrorIs(t, err, auth.ErrUnableToParseData)
}

func TestUsersRepository_UpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewUsersRepository(newTestDB(t))

	user, err := repo.Register(ctx, &auth.User{Email: "a@x.com", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "new"))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
}

func TestFlashcardSetsRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	mngr := auth.NewRepositoryManager(db)
	require.NoError(t, mngr.Validate())

	alice, err := mngr.Users().Register(ctx, &auth.User{Email: "alice@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	bob, err := mngr.Users().Register(ctx, &auth.User{Email: "bob@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	first, err := mngr.FlashcardSets().Create(ctx, &auth.FlashcardSet{
		Topic:       "go",
		ContentJSON: `[{"question":"q","answer":"a"}]`,
		UserID:      alice.ID,
	})
	require.NoError(t, err)
	assert.Greater(t, first.ID, int64(0))
	assert.False(t, first.CreatedAt.IsZero())

	_, err = mngr.FlashcardSets().Create(ctx, &auth.FlashcardSet{Topic: "sql", ContentJSON: "[]", UserID: alice.ID})
	require.NoError(t, err)
	_, err = mngr.FlashcardSets().Create(ctx, &auth.FlashcardSet{Topic: "bob's", ContentJSON: "[]", UserID: bob.ID})
	require.NoError(t, err)

	sets, err := mngr.FlashcardSets().ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "go", sets[0].Topic)
	assert.Equal(t, "sql", sets[1].Topic)

	empty, err := mngr.FlashcardSets().ListByOwner(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = mngr.FlashcardSets().Create(ctx, &auth.FlashcardSet{Topic: "orphan"})
	assert.ErrorIs(t, err, auth.ErrUnableToParseData)
}

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()
	mngr := auth.NewRepositoryManager(newTestDB(t))
	handler := auth.NewRegisterUserHandler(mngr, auth.NewBcryptHasher(4))

	user, err := handler.Register(ctx, auth.RegisterUserMessage{
		Email:    "cli@x.com",
		Password: "Secr3t!",
	})
	require.NoError(t, err)
	assert.Equal(t, "cli", user.Username)

	ok, err := auth.NewBcryptHasher(4).ComparePasswordAndHash(ctx, "Secr3t!", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	err = handler.Execute(ctx, auth.RegisterUserMessage{Email: "cli@x.com", Password: "other"})
	assert.ErrorIs(t, err, auth.ErrAlreadyRegistered)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = handler.Register(cancelled, auth.RegisterUserMessage{Email: "late@x.com", Password: "pw"})
	assert.Error(t, err)
}

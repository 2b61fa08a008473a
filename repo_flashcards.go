package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type FlashcardSets interface {
	Create(ctx context.Context, set *FlashcardSet) (*FlashcardSet, error)
	CreateTx(ctx context.Context, tx bun.IDB, set *FlashcardSet) (*FlashcardSet, error)
	ListByOwner(ctx context.Context, userID int64) ([]*FlashcardSet, error)
	ListByOwnerTx(ctx context.Context, tx bun.IDB, userID int64) ([]*FlashcardSet, error)
}

type flashcardSets struct {
	db  *bun.DB
	now func() time.Time
}

var _ FlashcardSets = (*flashcardSets)(nil)

func NewFlashcardSetsRepository(db *bun.DB) FlashcardSets {
	return &flashcardSets{db: db, now: time.Now}
}

func (r *flashcardSets) Create(ctx context.Context, set *FlashcardSet) (*FlashcardSet, error) {
	return r.CreateTx(ctx, r.db, set)
}

func (r *flashcardSets) CreateTx(ctx context.Context, tx bun.IDB, set *FlashcardSet) (*FlashcardSet, error) {
	if set == nil || set.UserID == 0 {
		return nil, ErrUnableToParseData
	}

	if set.CreatedAt.IsZero() {
		set.CreatedAt = r.now().UTC()
	}

	if _, err := tx.NewInsert().Model(set).Returning("id").Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert flashcard set").
			WithMetadata(map[string]any{"user_id": set.UserID})
	}

	return set, nil
}

func (r *flashcardSets) ListByOwner(ctx context.Context, userID int64) ([]*FlashcardSet, error) {
	return r.ListByOwnerTx(ctx, r.db, userID)
}

func (r *flashcardSets) ListByOwnerTx(ctx context.Context, tx bun.IDB, userID int64) ([]*FlashcardSet, error) {
	records := make([]*FlashcardSet, 0)
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list flashcard sets").
			WithMetadata(map[string]any{"user_id": userID})
	}

	return records, nil
}

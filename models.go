package auth

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	Username      string    `bun:"username,notnull" json:"username"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Subject returns the key tokens use to name this user
func (u *User) Subject() SubjectKey {
	return SubjectKey(u.ID)
}

// Flashcard is a single question and answer pair
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FlashcardSet is a saved group of flashcards owned by a user. The cards
// are stored as a JSON document.
type FlashcardSet struct {
	bun.BaseModel `bun:"table:flashcard_set,alias:fcs"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Topic         string    `bun:"topic,notnull" json:"topic"`
	ContentJSON   string    `bun:"content_json,notnull" json:"content_json"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	UserID        int64     `bun:"user_id,notnull" json:"user_id"`
	Owner         *User     `bun:"rel:belongs-to,join:user_id=id" json:"-"`
}

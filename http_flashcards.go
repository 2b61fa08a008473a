package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
)

// RegisterFlashcardRoutes mounts the flashcard set endpoints behind protected
func RegisterFlashcardRoutes[T any](app router.Router[T], controller *FlashcardController, protected router.MiddlewareFunc) {
	app.Post("/save-flashcards/", controller.Save, protected).
		SetName("flashcards.save")
	app.Get("/my-flashcards/", controller.List, protected).
		SetName("flashcards.list")
}

// FlashcardController stores and lists the caller's flashcard sets
type FlashcardController struct {
	Logger     Logger
	Sets       FlashcardSets
	ContextKey string
}

func NewFlashcardController(sets FlashcardSets, logger Logger) *FlashcardController {
	if logger == nil {
		logger = defLogger{}
	}
	return &FlashcardController{
		Logger:     logger,
		Sets:       sets,
		ContextKey: DefaultContextKey,
	}
}

// SaveFlashcardsRequest accepts either a list of cards or an already
// encoded JSON document.
type SaveFlashcardsRequest struct {
	Topic          string      `json:"topic"`
	Flashcards     []Flashcard `json:"flashcards"`
	FlashcardsJSON string      `json:"flashcards_json"`
}

// Validate will run validation rules
func (r SaveFlashcardsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Flashcards, validation.By(func(any) error {
			if len(r.Flashcards) == 0 && r.FlashcardsJSON == "" {
				return errors.New("cannot be blank")
			}
			return nil
		})),
		validation.Field(&r.FlashcardsJSON, validation.By(validJSON)),
	)
}

// content returns the JSON document to persist
func (r SaveFlashcardsRequest) content() (string, error) {
	if len(r.Flashcards) > 0 {
		b, err := json.Marshal(r.Flashcards)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return r.FlashcardsJSON, nil
}

// SaveFlashcardsResponse confirms a stored set
type SaveFlashcardsResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (f *FlashcardController) Save(ctx router.Context) error {
	subject, ok := CurrentSubject(ctx, f.ContextKey)
	if !ok {
		return ErrUnauthorized
	}

	payload := new(SaveFlashcardsRequest)
	if err := ctx.Bind(payload); err != nil {
		return errUnparsableBody(err)
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	content, err := payload.content()
	if err != nil {
		return err
	}

	set, err := f.Sets.Create(ctx.Context(), &FlashcardSet{
		Topic:       payload.Topic,
		ContentJSON: content,
		UserID:      int64(subject),
	})
	if err != nil {
		return err
	}

	f.Logger.Debug("flashcard set saved id=%d subject=%s", set.ID, subject)

	return ctx.JSON(http.StatusCreated, SaveFlashcardsResponse{
		Message: "saved",
		ID:      set.ID,
	})
}

func (f *FlashcardController) List(ctx router.Context) error {
	subject, ok := CurrentSubject(ctx, f.ContextKey)
	if !ok {
		return ErrUnauthorized
	}

	sets, err := f.Sets.ListByOwner(ctx.Context(), int64(subject))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, sets)
}

func validJSON(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !json.Valid([]byte(s)) {
		return errors.New("must be valid JSON")
	}
	return nil
}

package auth

import (
	stderrors "errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts signup, login and the identity endpoints.
// protected guards the routes that need a bearer token.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController, protected router.MiddlewareFunc) {
	app.Post(controller.Routes.Signup, controller.Signup).
		SetName("signup.post")
	app.Post(controller.Routes.Login, controller.Login).
		SetName("login.post")

	app.Get(controller.Routes.Me, controller.Me, protected).
		SetName("me.get")
	app.Post(controller.Routes.ChangePassword, controller.ChangePassword, protected).
		SetName("password.post")
}

type AuthControllerRoutes struct {
	Signup         string
	Login          string
	Me             string
	ChangePassword string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Auther     Authenticator
	Routes     *AuthControllerRoutes
	ContextKey string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithAuthControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithAuthControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithAuthControllerContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func NewAuthController(auther Authenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		Auther:     auther,
		ContextKey: DefaultContextKey,
		Routes: &AuthControllerRoutes{
			Signup:         "/signup",
			Login:          "/login",
			Me:             "/me",
			ChangePassword: "/change-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// SignupRequest payload. Username is optional and defaults to the local
// part of the email.
type SignupRequest struct {
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.Length(0, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID        SubjectKey `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// LoginRequest payload. Form posts use the OAuth2 password grant field
// names, so the email arrives as "username".
type LoginRequest struct {
	Email    string `form:"username" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// redacted is safe to print
func (r LoginRequest) redacted() LoginRequest {
	r.Password = "********"
	return r
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(1, 72)),
	)
}

func (a *AuthController) Signup(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("signup parse payload: %v", err)
		return errUnparsableBody(err)
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	identity, err := a.Auther.Register(ctx.Context(), payload.Email, payload.Username, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, userResponse(identity))
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("login parse payload: %v", err)
		return errUnparsableBody(err)
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("login payload %s", print.MaybePrettyJSON(payload.redacted()))
	}

	res, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, res)
}

func (a *AuthController) Me(ctx router.Context) error {
	identity, ok := GetRouterIdentity(ctx, a.ContextKey)
	if !ok {
		return ErrUnauthorized
	}
	return ctx.JSON(http.StatusOK, userResponse(identity))
}

func (a *AuthController) ChangePassword(ctx router.Context) error {
	subject, ok := CurrentSubject(ctx, a.ContextKey)
	if !ok {
		return ErrUnauthorized
	}

	payload := new(ChangePasswordRequest)
	if err := ctx.Bind(payload); err != nil {
		return errUnparsableBody(err)
	}

	if err := payload.Validate(); err != nil {
		return validationFailed(ctx, err)
	}

	if err := a.Auther.ChangePassword(ctx.Context(), subject, payload.CurrentPassword, payload.NewPassword); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

type userRecordHolder interface {
	User() *User
}

func userResponse(identity Identity) UserResponse {
	res := UserResponse{
		ID:       identity.ID(),
		Email:    identity.Email(),
		Username: identity.Username(),
	}
	if h, ok := identity.(userRecordHolder); ok && h.User() != nil {
		created := h.User().CreatedAt
		res.CreatedAt = &created
	}
	return res
}

func validationFailed(ctx router.Context, err error) error {
	return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Detail: FormatValidationErrorToMap(err),
	})
}

func errUnparsableBody(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "unable to parse request body").
		WithCode(errors.CodeBadRequest)
}

// FormatValidationErrorToMap flattens ozzo validation errors into field
// name to message pairs.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["body"] = err.Error()
	return out
}

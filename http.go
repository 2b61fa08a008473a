package auth

import (
	stderrors "errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-flashcards-auth/middleware/jwtware"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const claimsLocalsKey = "auth_claims"

// ErrorResponse is the body of every error the API returns
type ErrorResponse struct {
	Detail any `json:"detail"`
}

type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	Logger           Logger
	AuthErrorHandler router.ErrorHandler
	ErrorHandler     router.ErrorHandler
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	if l != nil {
		a.Logger = l
	}
	return a
}

// ProtectedRoute returns a middleware that only lets requests with a valid
// bearer token for an existing user through. The identity is stored in the
// request locals under the configured context key and in the user context.
func (a *RouteAuthenticator) ProtectedRoute(listeners ...ValidationListener) router.MiddlewareFunc {
	cfg := jwtware.Config{
		ErrorHandler:    a.AuthErrorHandler,
		TokenValidator:  jwtware.TokenValidatorFunc(a.validate),
		AuthScheme:      a.cfg.GetAuthScheme(),
		ContextKey:      claimsLocalsKey,
		TokenLookup:     a.cfg.GetTokenLookup(),
		ContextEnricher: ContextEnricherAdapter,
	}

	RegisterValidationListeners(&cfg, a.resolveIdentity)
	RegisterValidationListeners(&cfg, listeners...)

	return jwtware.New(cfg)
}

func (a *RouteAuthenticator) validate(raw string) (jwtware.AuthClaims, error) {
	session, err := a.auth.SessionFromToken(raw)
	if err != nil {
		return nil, err
	}
	return sessionClaims{Session: session}, nil
}

func (a *RouteAuthenticator) resolveIdentity(ctx router.Context, claims jwtware.AuthClaims) error {
	session, ok := SessionFromClaims(claims)
	if !ok {
		return ErrUnableToDecodeSession
	}

	identity, err := a.auth.IdentityFromSession(ctx.Context(), session)
	if err != nil {
		return err
	}

	ctx.Locals(a.cfg.GetContextKey(), identity)
	ctx.SetContext(WithIdentity(ctx.Context(), identity))

	return nil
}

// defaultAuthErrHandler answers every rejected token the same way so the
// response does not tell a caller which check failed.
func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	if stderrors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		err = ErrTokenMissing
	}

	if IsAuthFailure(err) {
		a.Logger.Debug("auth rejected path=%s code=%s", c.Path(), ErrorTextCode(err))
	}

	return a.ErrorHandler(c, Unauthorized(err))
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	return WriteError(c, a.Logger, err)
}

// NewErrorMiddleware renders any error returned further down the chain
// with WriteError.
func NewErrorMiddleware(logger Logger) router.MiddlewareFunc {
	if logger == nil {
		logger = defLogger{}
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			var err error
			if next == nil {
				err = ctx.Next()
			} else {
				err = next(ctx)
			}
			if err == nil {
				return nil
			}
			return WriteError(ctx, logger, err)
		}
	}
}

// NewErrorHandler is the fiber level fallback for errors raised outside
// the router chain, such as unmatched routes and recovered panics.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if stderrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Detail: fiberErr.Message})
		}
		logger.Error("request failed path=%s error=%s", c.Path(), err)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{Detail: "internal server error"})
	}
}

// WriteError renders err as {"detail": ...}. Internal faults are logged and
// replaced by a generic message.
func WriteError(c router.Context, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return c.JSON(fiberErr.Code, ErrorResponse{Detail: fiberErr.Message})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	switch {
	case ErrorTextCode(richErr) == TextCodeUnauthorized:
		c.SetHeader(fiber.HeaderWWWAuthenticate, "Bearer")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: ErrUnauthorized.Message})
	case ErrorTextCode(richErr) == TextCodeInvalidCreds:
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: ErrInvalidCredentials.Message})
	case IsAuthFailure(richErr):
		// uncollapsed variants never reach a client
		c.SetHeader(fiber.HeaderWWWAuthenticate, "Bearer")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: ErrUnauthorized.Message})
	}

	switch richErr.Category {
	case errors.CategoryConflict, errors.CategoryValidation, errors.CategoryBadInput, errors.CategoryNotFound:
		return c.JSON(statusFor(richErr, http.StatusBadRequest), ErrorResponse{Detail: richErr.Message})
	case errors.CategoryRateLimit:
		logger.Warn("request throttled path=%s code=%s", c.Path(), richErr.TextCode)
		return c.JSON(statusFor(richErr, http.StatusServiceUnavailable), ErrorResponse{Detail: "service busy, retry later"})
	}

	logger.Error(
		"request failed path=%s error=%s details=%s",
		c.Path(),
		err,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "internal server error"})
}

func statusFor(err *errors.Error, def int) int {
	if err.Code >= 400 && err.Code < 600 {
		return err.Code
	}
	return def
}

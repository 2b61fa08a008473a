package auth

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ServerOptions hold what NewApp needs to mount the API
type ServerOptions struct {
	Auther        Authenticator
	Config        Config
	FlashcardSets FlashcardSets
	Logger        Logger
	// CORSOrigins is a comma separated list, empty disables CORS.
	CORSOrigins string
	Debug       bool
}

// HealthResponse is returned by the root route
type HealthResponse struct {
	Status string `json:"status"`
}

// Server is the mounted API on top of the fiber adapter
type Server struct {
	router.Server[*fiber.App]
	app *fiber.App
}

// App returns the underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Test runs req through the application without a listener
func (s *Server) Test(req *http.Request) (*http.Response, error) {
	return s.app.Test(req, -1)
}

// ShutdownWithTimeout stops the listener and waits up to timeout for
// requests in flight
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// NewApp builds the HTTP server with the auth and flashcard routes
func NewApp(opts ServerOptions) (*Server, error) {
	if opts.Auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryBadInput)
	}

	if opts.Config == nil {
		opts.Config = Options{}
	}

	if opts.Logger == nil {
		opts.Logger = defLogger{}
	}

	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{
			AppName:               "flashcards-api",
			DisableStartupMessage: true,
			ErrorHandler:          NewErrorHandler(opts.Logger),
		})

		app.Use(recover.New())

		if opts.CORSOrigins != "" {
			app.Use(cors.New(cors.Config{
				AllowOrigins: opts.CORSOrigins,
				AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			}))
		}

		return app
	})

	routeAuth, err := NewHTTPAuthenticator(opts.Auther, opts.Config)
	if err != nil {
		return nil, err
	}
	routeAuth.WithLogger(opts.Logger)

	protected := routeAuth.ProtectedRoute()

	r := srv.Router()
	r.Use(NewErrorMiddleware(opts.Logger))

	r.Get("/", func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}).SetName("health")

	controller := NewAuthController(opts.Auther,
		WithAuthControllerLogger(opts.Logger),
		WithAuthControllerDebug(opts.Debug),
		WithAuthControllerContextKey(opts.Config.GetContextKey()),
	)
	RegisterAuthRoutes(r, controller, protected)

	if opts.FlashcardSets != nil {
		flashcards := NewFlashcardController(opts.FlashcardSets, opts.Logger)
		flashcards.ContextKey = opts.Config.GetContextKey()
		RegisterFlashcardRoutes(r, flashcards, protected)
	}

	return &Server{Server: srv, app: app}, nil
}

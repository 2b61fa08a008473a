package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	auth "github.com/goliatone/go-flashcards-auth"
	"github.com/goliatone/go-flashcards-auth/activitymap"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "flashcards-api",
		Short:         "Flashcards API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	root.PersistentFlags().String("db_driver", auth.DriverSQLite, "database driver: sqlite or postgres")
	root.PersistentFlags().String("db_dsn", "", "database connection string")
	root.PersistentFlags().String("log_level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCommand(&configFile),
		newUserCommand(&configFile),
	)

	return root
}

func newServeCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags(), *configFile)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().Bool("debug", false, "log request payloads")
	cmd.Flags().String("cors_origins", "", "comma separated list of allowed origins")

	return cmd
}

func newUserCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags(), *configFile)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			return createUser(cmd.Context(), cfg, auth.RegisterUserMessage{
				Email:    v.GetString("email"),
				Username: v.GetString("username"),
				Password: v.GetString("password"),
			}, cmd.OutOrStdout())
		},
	}

	create.Flags().String("email", "", "account email")
	create.Flags().String("username", "", "account username, defaults to the email local part")
	create.Flags().String("password", "", "account password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)

	return cmd
}

func newLogger(level string) *auth.SlogLogger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return auth.NewSlogLogger(slog.New(handler)).With("service", "flashcards-api")
}

func serve(ctx context.Context, cfg appConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger(cfg.LogLevel)

	db, err := auth.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := auth.CreateSchema(ctx, db); err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	provider := auth.NewUserProvider(repo.Users()).WithLogger(logger)

	auther, err := auth.NewAuthenticator(provider, cfg.Auth)
	if err != nil {
		return err
	}
	auther.WithLogger(logger).WithActivitySink(activitymap.NewSink(func(n activitymap.Normalized) error {
		logger.Info("activity verb=%s actor=%s channel=%s", n.Verb, n.ActorID, n.Channel)
		return nil
	}))

	srv, err := auth.NewApp(auth.ServerOptions{
		Auther:        auther,
		Config:        cfg.Auth,
		FlashcardSets: repo.FlashcardSets(),
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
		Debug:         cfg.Debug,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening addr=%s", cfg.Addr)
		errc <- srv.Serve(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return srv.ShutdownWithTimeout(10 * time.Second)
}

func createUser(ctx context.Context, cfg appConfig, msg auth.RegisterUserMessage, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := auth.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := auth.CreateSchema(ctx, db); err != nil {
		return err
	}

	handler := auth.NewRegisterUserHandler(
		auth.NewRepositoryManager(db),
		auth.NewPasswordHasher(cfg.Auth.GetHasher()),
	)

	user, err := handler.Register(ctx, msg)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "created user id=%d email=%s\n", user.ID, user.Email)
	return err
}

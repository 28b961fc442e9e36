package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notably/internal/api"
	"notably/internal/api/handlers"
	"notably/internal/auth"
	"notably/internal/auth/providers"
	"notably/internal/config"
	"notably/internal/seed"
	"notably/internal/store"
	"notably/internal/verify"
)

// @title Notably API
// @version 1.0
// @description Notes service with accounts, sessions, roles, and two-factor
// @description authentication.
// @BasePath /
func main() {
	root := &cobra.Command{
		Use:          "notably",
		Short:        "Notably note-taking service",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), resetCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// withStore loads config, connects, and hands the store to fn, closing the
// connection afterwards.
func withStore(fn func(ctx context.Context, cfg config.Config, st *store.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := store.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.Printf("closing database: %v", err)
			}
		}()
		return fn(cmd.Context(), cfg, st)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: withStore(func(ctx context.Context, _ config.Config, st *store.Store) error {
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			log.Println("Migration complete")
			return nil
		}),
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop all application tables",
		RunE: withStore(func(ctx context.Context, _ config.Config, st *store.Store) error {
			if err := st.Reset(ctx); err != nil {
				return err
			}
			log.Println("Database reset")
			return nil
		}),
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset, migrate, and populate the database with sample data",
		RunE: withStore(func(ctx context.Context, _ config.Config, st *store.Store) error {
			if err := st.Reset(ctx); err != nil {
				return err
			}
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			if err := seed.Run(ctx, st); err != nil {
				return err
			}
			log.Println("Database seeded")
			return nil
		}),
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: withStore(func(ctx context.Context, cfg config.Config, st *store.Store) error {
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			handler := buildHandler(cfg, st)
			server := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      handler,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("Server running on port %s", cfg.Port)
				errCh <- server.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case sig := <-stop:
				log.Printf("Received %s, shutting down", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func buildHandler(cfg config.Config, st *store.Store) http.Handler {
	cookies := auth.NewCookieCodec(cfg.SessionSecret, cfg.IsProd())
	authenticator := auth.New(st, cookies)
	if cfg.Google.ClientID != "" {
		authenticator.RegisterProvider("google", providers.NewGoogle(
			cfg.Google.ClientID,
			cfg.Google.ClientSecret,
			cfg.Google.RedirectURL,
		))
	}
	verifier := verify.New(st, cookies, "Notably")

	h := handlers.New(st, authenticator, verifier)
	return api.NewRouter(h, authenticator, cfg.CorsConfig)
}

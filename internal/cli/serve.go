package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/discordin/internal/api"
	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/config"
	"github.com/isdelr/discordin/internal/database"
	"github.com/isdelr/discordin/internal/monitoring"
	"github.com/isdelr/discordin/internal/services"
	"github.com/isdelr/discordin/internal/web"
	"github.com/isdelr/discordin/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up database
	db, err := database.New(cfg.DBConfig.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Set up services
	eventService := services.NewEventService(db, hub)
	profileService := services.NewProfileService(db, eventService)
	userService := services.NewUserService(db, profileService, eventService, cfg.AppConfig.MinimumAge)
	bambooService := services.NewBambooService(db, eventService)
	messageService := services.NewMessageService(db, bambooService, hub)

	// Set up and run the event pruner
	pruner := monitoring.NewEventPruner(eventService, cfg.EventConfig.PruneSchedule, cfg.EventRetention())
	if err := pruner.Start(); err != nil {
		return fmt.Errorf("failed to start event pruner: %w", err)
	}
	defer pruner.Stop()

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	// Set up router
	router := api.NewRouter(api.Dependencies{
		DB:             db,
		Hub:            hub,
		Sessions:       auth.NewSessionManager(cfg.SessionConfig.Secret, cfg.SessionTTL(), cfg.IsProduction()),
		Renderer:       renderer,
		Users:          userService,
		Profiles:       profileService,
		Events:         eventService,
		Bamboos:        bambooService,
		Messages:       messageService,
		AllowedOrigins: cfg.Origins(),
		SecureCookies:  cfg.IsProduction(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPConfig.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPConfig.Port).Str("env", cfg.AppConfig.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server exiting")
	return nil
}

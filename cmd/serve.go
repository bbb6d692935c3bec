package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plateau/api"
	"plateau/config"
	"plateau/database"
	"plateau/logging"
	"plateau/services"

	"github.com/spf13/cobra"
)

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagPort, "port", "", "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.AppConfig
	if flagPort != "" {
		cfg.Server.Port = flagPort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if cfg.Seed.OnStart {
		if _, err := database.SeedIfEmpty(db); err != nil {
			return err
		}
	}

	kb, err := newKnowledgeBase(db, newSearchCache(ctx, cfg), cfg)
	if err != nil {
		return err
	}

	if cfg.Search.RebuildSchedule != "" {
		scheduler, err := services.NewIndexScheduler(kb, cfg.Search.RebuildSchedule)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := api.NewRouter(api.NewAPIHandler(kb, db), cfg.Server.Mode)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

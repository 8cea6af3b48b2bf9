package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-paper-service/internal/app"
	"exam-paper-service/internal/config"
	"exam-paper-service/internal/storage"
	transport "exam-paper-service/internal/transport/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Load the question bank and serve the REST API and attempt websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	// topics load sequentially and finish before anything is served
	if _, err := d.bank.Load(ctx); err != nil {
		return fmt.Errorf("load question bank: %w", err)
	}

	statsStore := storage.NewStatsStore(d.kv, logger)
	historyStore := storage.NewHistoryStore(d.kv, logger)
	stats := app.NewStatisticsRecorder(statsStore)
	attempts := app.NewAttemptService(d.bank, stats, historyStore, app.WithLogger(logger))
	defer attempts.Close()
	practice := app.NewPracticeService(stats, logger)

	var images transport.ImageResolver
	if d.images != nil {
		images = d.images
	}
	api := transport.NewAPI(d.bank, practice, stats, historyStore, images, logger)
	handler := transport.NewRouter(api, transport.NewWSHandler(attempts, logger), logger)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reloadOnHangup(gctx, d.bank.Reload, logger)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting exam paper service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// reloadOnHangup reloads the question bank on SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, reload func(context.Context) (int, error), logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			n, err := reload(ctx)
			if err != nil {
				logger.Error("reload question bank failed", "error", err)
				continue
			}
			logger.Info("question bank reloaded", "questions", n)
		}
	}
}

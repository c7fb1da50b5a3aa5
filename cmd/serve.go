package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/bnema/lfg-coordinator/internal/adapters/http"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator HTTP API",
		Long:  "serve restores persisted sessions, re-arms idle timers for empty voice rooms, runs periodic maintenance and serves the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = app.cfg.HTTP.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (defaults to http.listen)")
	return cmd
}

func serve(ctx context.Context, app *app, listen string) error {
	repo, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			app.logger.Warn("close state repository failed", "error", closeErr)
		}
	}()

	resources, occupancy, err := app.newGateway()
	if err != nil {
		return err
	}

	svc := app.newService(repo, resources, occupancy)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := httpapi.NewServer(svc, app.logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return svc.Run(groupCtx)
	})
	group.Go(func() error {
		return server.ListenAndServe(groupCtx, listen)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.logger.Info("coordinator stopped")
	return nil
}

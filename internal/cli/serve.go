package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/guillaumegay13/fieldflow/internal/config"
	"github.com/guillaumegay13/fieldflow/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool surface over HTTP",
		Long: "Serve the compiled tool surface over HTTP: service info on /, discovery on " +
			"/tools, and invocation on /tools/{name}.",
		Example: strings.TrimSpace(`  fieldflow serve --spec openapi.yaml --addr 127.0.0.1:8000
  fieldflow --config fieldflow.yaml serve`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	addRuntimeFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (default 127.0.0.1:8000)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	api := httpapi.NewServer(rt.set, rt.logger, rt.cfg.Spec.Path, rt.baseURL)
	srv := &http.Server{
		Addr:              rt.cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		rt.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

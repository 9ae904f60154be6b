package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-hunter-go/internal/handler"
	"github.com/ad-tracker/video-hunter-go/pkg/logger"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored videos and quota usage over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.Server.Port
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withStore(sigCtx, func(conn *sql.DB) error {
				gin.SetMode(gin.ReleaseMode)
				log := logger.Named("server")
				videos := ctx.videoRepository(conn)

				router := handler.NewRouter(handler.RouterConfig{
					Videos:   videos,
					Store:    videos,
					Quota:    ctx.quotaManager(conn),
					Gatherer: ctx.registry,
					APIKeys:  cfg.Server.APIKeys,
					Logger:   log,
				})

				listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
				if err != nil {
					return fmt.Errorf("listen on port %d: %w", port, err)
				}
				return serve(sigCtx, listener, router, cfg.Server.ShutdownTimeout, log)
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (defaults to server.port)")
	return cmd
}

// serve runs an HTTP server on listener until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func serve(ctx context.Context, listener net.Listener, h http.Handler, shutdownTimeout time.Duration, log *zap.Logger) error {
	server := &http.Server{
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", listener.Addr().String()))
		serverErrors <- server.Serve(listener)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				log.Error("failed to close server", zap.Error(err))
			}
			return err
		}

		log.Info("server stopped gracefully")
		return nil
	}
}

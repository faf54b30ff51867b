package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fullmargin/factures/config"
	"github.com/fullmargin/factures/logger"
	"github.com/fullmargin/factures/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.WithComponent("server")

		if cfg.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		gw, err := server.NewGateway(cfg)
		if err != nil {
			return err
		}
		locker, closeLocker := server.NewLocker(cfg, logger.WithComponent("lock"))
		defer closeLocker()

		router := server.New(server.Deps{
			DB:      db,
			Config:  cfg,
			Gateway: gw,
			Locker:  locker,
			Logger:  log,
		})

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().
				Str("port", cfg.Port).
				Str("gateway", cfg.Gateway).
				Bool("redis_lock", cfg.RedisAddr != "").
				Msg("starting factures API server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "time allowed for in-flight requests to finish")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudseek/cloudseek/internal/api"
	"github.com/cloudseek/cloudseek/internal/config"
	"github.com/cloudseek/cloudseek/internal/logger"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := ctx.ensure()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Address()
			}

			log.Info().
				Str("version", config.Version).
				Str("logLevel", cfg.Logging.Level).
				Msg("starting CloudSeek")

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Aliases.Watch {
				svc, err := a.watch()
				if err != nil {
					log.Warn().Err(err).Msg("File watching disabled")
				} else {
					defer func() { _ = svc.Stop() }()
				}
			}

			var logFile string
			if cfg.Logging.Path != "" {
				logFile = filepath.Join(cfg.Logging.Path, logger.FileName)
			}

			server := api.NewServer(api.Deps{
				Config:    cfg.Server,
				Search:    a.search,
				Cache:     a.cache,
				Parser:    a.parser,
				Metrics:   a.metrics,
				Providers: a.providers,
				Logs:      log.Recent(),
				LogFile:   logFile,
			}, log.Logger)

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(addr)
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-sigCtx.Done():
				log.Info().Msg("received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.host:server.port)")
	return cmd
}

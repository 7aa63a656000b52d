package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bereal_explorer/internal/config"
	"bereal_explorer/internal/server"
)

const shutdownTimeout = 5 * time.Second

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve -f <export.zip> -gz <events.gz> [--addr 127.0.0.1:8787]",
		Short: "Ingest an export and browse or download it over local HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			result, ingestErr := a.ingest(ctx, cmd.ErrOrStderr())
			if ingestErr != nil {
				return ingestErr
			}
			defer func() {
				released := result.Release()
				a.logger.Info("session released", zap.Int("media", released))
			}()

			app := server.New(result, server.Options{Logger: a.logger, Location: a.cfg.Location})
			addr := a.cfg.Server.Addr
			listenErrs := make(chan error, 1)
			go func() {
				listenErrs <- app.Listen(addr)
			}()
			a.logger.Info("serving export", zap.String("addr", addr))
			fmt.Fprintf(cmd.OutOrStdout(), "http://%s/\n", addr)

			select {
			case listenErr := <-listenErrs:
				if listenErr != nil {
					return fmt.Errorf("listen on %s: %w", addr, listenErr)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if shutdownErr := app.ShutdownWithContext(shutdownCtx); shutdownErr != nil {
				return fmt.Errorf("shutdown: %w", shutdownErr)
			}
			return nil
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("addr", "", "Listen address (default from server.addr)")
	bindKey(cmd.Flags(), "addr", config.KeyServerAddr)
	return cmd
}

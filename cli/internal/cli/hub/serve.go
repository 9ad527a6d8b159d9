package hub

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	agenthub "github.com/agenthub-dev/agenthub/go/pkg/hub"
)

// NewServeCmd creates the serve command running the local ops surface.
func NewServeCmd(load hubLoader, log logr.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local ops surface (health, backends, sessions, metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, cfg, err := load()
			if err != nil {
				return err
			}
			defer h.Close()

			server := agenthub.NewOpsServer(h).Build(cfg.Listen)
			errCh := make(chan error, 1)
			go func() {
				log.Info("ops surface listening", "addr", cfg.Listen)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info("shutting down", "signal", sig.String())
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
